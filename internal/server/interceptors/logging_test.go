package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	interceptor := LoggingUnary(logger, map[string]bool{"/grpc.health.v1.Health/Check": true})

	failing := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.PermissionDenied, "no")
	}
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Do"}, failing)
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("interceptor changed the error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"method":"/svc/Do"`) || !strings.Contains(out, `"code":"PermissionDenied"`) {
		t.Errorf("log = %s", out)
	}

	buf.Reset()
	ok := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, ok)
	if buf.Len() != 0 {
		t.Errorf("skipped method was logged: %s", buf.String())
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":418`) || !strings.Contains(out, `"path":"/api/v1/users/login"`) {
		t.Errorf("log = %s", out)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"forwarded", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "1.2.3.4, 10.0.0.1")), "1.2.3.4"},
		{"real ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "5.6.7.8")), "5.6.7.8"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("9.9.9.9"), Port: 5000}}), "9.9.9.9"},
		{"unknown", context.Background(), "unknown"},
	}
	for _, tc := range tests {
		if got := ClientIP(tc.ctx); got != tc.want {
			t.Errorf("%s: ClientIP = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLoggingUnary_RecordsAccountFromInnerAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging := LoggingUnary(logger, nil)
	authn := AuthUnary(&stubAuth{token: "good"}, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Do"}
	chained := func(ctx context.Context, req interface{}) (interface{}, error) {
		return authn(ctx, req, info, echoIdentity)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer good"))
	if _, err := logging(ctx, nil, info, chained); err != nil {
		t.Fatalf("authenticated call: %v", err)
	}
	if !strings.Contains(buf.String(), `"account_id":"acc-1"`) {
		t.Errorf("log = %s, want account_id", buf.String())
	}

	buf.Reset()
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer bad"))
	_, _ = logging(ctx, nil, info, chained)
	if out := buf.String(); !strings.Contains(out, `"code":"Unauthenticated"`) || strings.Contains(out, "account_id") {
		t.Errorf("rejected call log = %s", out)
	}
}

func TestRequestLogger_RecordsAccountFromInnerAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequestLogger(logger)(Authenticate(&stubAuth{token: "good"}, nil)(ok))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer good")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !strings.Contains(buf.String(), `"account_id":"acc-1"`) {
		t.Errorf("log = %s, want account_id", buf.String())
	}

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	if out := buf.String(); !strings.Contains(out, `"status":401`) || strings.Contains(out, "account_id") {
		t.Errorf("anonymous request log = %s", out)
	}
}
