package interceptors

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/apperr"
)

// AccessCookieName is the cookie carrying the access token. It takes precedence over the Authorization header.
const AccessCookieName = "accessToken"

const bearerPrefix = "bearer "

// TokenAuthenticator resolves an access token to an account profile.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Profile, error)
}

// AuthUnary returns a unary server interceptor that authenticates the access token from the
// cookie metadata or, failing that, the Bearer authorization metadata, and puts the profile in context.
// publicMethods is the set of full method names that do not require a token (e.g. health checks);
// a valid token on a public method still attaches the identity.
func AuthUnary(auth TokenAuthenticator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		public := publicMethods[info.FullMethod]
		token := tokenFromMetadata(ctx)
		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, apperr.GRPCStatus(apperr.ErrUnauthorized)
		}
		p, err := auth.Authenticate(ctx, token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, apperr.GRPCStatus(err)
		}
		return handler(WithIdentity(ctx, p), req)
	}
}

// tokenFromMetadata returns the access token from gRPC metadata, or "" if absent.
func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, line := range md.Get("cookie") {
		if v := accessCookie(line); v != "" {
			return v
		}
	}
	if vals := md.Get("authorization"); len(vals) > 0 {
		return parseBearer(vals[0])
	}
	return ""
}

// TokenFromRequest returns the access token from the accessToken cookie or, failing that,
// the Authorization: Bearer header. It returns "" if neither is present.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return parseBearer(r.Header.Get("Authorization"))
}

func accessCookie(line string) string {
	cookies, err := http.ParseCookie(line)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == AccessCookieName && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// parseBearer returns the token from a "Bearer <token>" value, or "" if malformed.
func parseBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
