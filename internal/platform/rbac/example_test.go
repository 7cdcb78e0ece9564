package rbac_test

import (
	"context"
	"errors"
	"fmt"

	"videotube/backend/internal/account/domain"
	"videotube/backend/internal/apperr"
	"videotube/backend/internal/platform/rbac"
	"videotube/backend/internal/server/interceptors"
)

type videoOwners map[string]string

func (v videoOwners) OwnerOf(_ context.Context, videoID string) (string, error) {
	owner, ok := v[videoID]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return owner, nil
}

func ExampleRequireOwnerOf() {
	videos := videoOwners{"vid-1": "acc-1", "vid-2": "acc-2"}
	ctx := interceptors.WithIdentity(context.Background(), &domain.Profile{ID: "acc-1", Handle: "alice"})

	for _, id := range []string{"vid-1", "vid-2", "vid-3"} {
		_, err := rbac.RequireOwnerOf(ctx, videos, id)
		switch {
		case err == nil:
			fmt.Println(id, "allowed")
		case errors.Is(err, apperr.ErrForbidden):
			fmt.Println(id, "forbidden")
		case errors.Is(err, apperr.ErrNotFound):
			fmt.Println(id, "not found")
		}
	}
	// Output:
	// vid-1 allowed
	// vid-2 forbidden
	// vid-3 not found
}
