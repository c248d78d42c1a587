package translate

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/translive/translive/internal/observability"
	"github.com/translive/translive/internal/resilience"
)

// Translator service methods. Requests and replies are google.protobuf.Struct messages.
const (
	GRPCServiceName         = "translive.v1.Translator"
	grpcTranslateMethod     = "/" + GRPCServiceName + "/Translate"
	grpcListLanguagesMethod = "/" + GRPCServiceName + "/ListLanguages"
)

// GRPCTranslator calls a translation sidecar over gRPC.
//
// Translate request:      {"text", "source_language", "target_language"}
// Translate reply:        {"translated_text"}
// ListLanguages reply:    {"languages": [{"code", "targets": [...]}]}
//
// codes.NotFound and codes.Unimplemented on Translate mean the pair is not installed.
type GRPCTranslator struct {
	addr string
	conn *grpc.ClientConn
}

// NewGRPCTranslator creates a client for addr. The connection is established lazily.
func NewGRPCTranslator(addr string, useTLS bool) (*GRPCTranslator, error) {
	var opts []grpc.DialOption

	if useTLS {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	// Keepalive settings for the long-lived sidecar connection
	opts = append(opts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                30 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}))

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator client for %s: %w", addr, err)
	}

	logger := observability.WithComponent("translate")
	logger.Info().Str("addr", addr).Bool("tls", useTLS).Msg("gRPC translator configured")

	return &GRPCTranslator{addr: addr, conn: conn}, nil
}

// Name returns the backend name
func (g *GRPCTranslator) Name() string {
	return "grpc"
}

// Translate invokes the unary Translate method
func (g *GRPCTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	req, err := structpb.NewStruct(map[string]interface{}{
		"text":            text,
		"source_language": source,
		"target_language": target,
	})
	if err != nil {
		return "", translationError(g.Name(), err)
	}

	reply := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, grpcTranslateMethod, req, reply); err != nil {
		switch status.Code(err) {
		case codes.NotFound, codes.Unimplemented:
			return "", fmt.Errorf("%s: %w", status.Convert(err).Message(), ErrUnavailable)
		case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
			return "", translationError(g.Name(), resilience.NewRetryableError(err))
		}
		return "", translationError(g.Name(), err)
	}

	translated, ok := reply.GetFields()["translated_text"]
	if !ok {
		return "", translationError(g.Name(), fmt.Errorf("reply has no translated_text"))
	}
	return CheckSentinel(translated.GetStringValue())
}

// Languages invokes ListLanguages
func (g *GRPCTranslator) Languages(ctx context.Context) ([]Language, error) {
	reply := &structpb.Struct{}
	if err := g.conn.Invoke(ctx, grpcListLanguagesMethod, &structpb.Struct{}, reply); err != nil {
		return nil, fmt.Errorf("grpc translator: list languages: %w", err)
	}

	raw, err := json.Marshal(reply.AsMap()["languages"])
	if err != nil {
		return nil, err
	}
	var languages []Language
	if err := json.Unmarshal(raw, &languages); err != nil {
		return nil, fmt.Errorf("grpc translator: parse languages: %w", err)
	}
	return languages, nil
}

// CheckPair returns ErrUnavailable unless source -> target is installed
func (g *GRPCTranslator) CheckPair(ctx context.Context, source, target string) error {
	languages, err := g.Languages(ctx)
	if err != nil {
		return err
	}
	if !pairAvailable(languages, source, target) {
		return ErrUnavailable
	}
	return nil
}

// Ping uses the standard gRPC health service for the translator service
func (g *GRPCTranslator) Ping(ctx context.Context) error {
	resp, err := healthpb.NewHealthClient(g.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: GRPCServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("translator service is %s", resp.GetStatus())
	}
	return nil
}

// Close closes the gRPC connection
func (g *GRPCTranslator) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}
