package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mydata-ng/privacy-client/internal/models"
)

// Эндпойнты /users.
const (
	PathProfile     = "/users/me"
	PathPermissions = "/users/permissions"
	PathAccessLogs  = "/users/access-logs"
)

// UsersAPI — профиль пользователя и выданные им разрешения.
type UsersAPI struct {
	c Caller
}

func (u *UsersAPI) GetProfile(ctx context.Context) (models.Envelope[models.User], error) {
	return send[models.User](ctx, u.c, http.MethodGet, PathProfile, nil)
}

// UpdateProfile отправляет изменения профиля (PUT).
func (u *UsersAPI) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (models.Envelope[models.User], error) {
	return send[models.User](ctx, u.c, http.MethodPut, PathProfile, req)
}

func (u *UsersAPI) GetPermissions(ctx context.Context) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, u.c, http.MethodGet, PathPermissions, nil)
}

func (u *UsersAPI) GetAccessLogs(ctx context.Context) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, u.c, http.MethodGet, PathAccessLogs, nil)
}
