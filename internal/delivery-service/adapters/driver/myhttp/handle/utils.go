package handle

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"dropx/internal/delivery-service/core/domain/model"
	"dropx/internal/delivery-service/core/myerrors"
)

// jsonResponse writes the given data as a JSON-encoded HTTP response.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// JsonError writes an error response as JSON with the specified HTTP status code.
func JsonError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}

// serviceError maps the error taxonomy onto HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch myerrors.KindOf(err) {
	case myerrors.KindValidation:
		code = http.StatusBadRequest
	case myerrors.KindConflict:
		code = http.StatusConflict
	case myerrors.KindNotFound:
		code = http.StatusNotFound
	case myerrors.KindPermission:
		code = http.StatusForbidden
	case myerrors.KindDegraded:
		code = http.StatusBadGateway
	}
	JsonError(w, code, err)
}

var errBadPrincipal = errors.New("missing or malformed identity headers")

// principalFrom reads the identity the auth middleware stamped on the request.
func principalFrom(r *http.Request) (model.Principal, error) {
	id, err := uuid.Parse(r.Header.Get("X-UserId"))
	if err != nil {
		return model.Principal{}, errBadPrincipal
	}
	role := model.Role(r.Header.Get("X-Role"))
	switch role {
	case model.RoleSender, model.RoleDriver, model.RoleBoth:
	default:
		return model.Principal{}, errBadPrincipal
	}
	return model.Principal{
		ID:       id,
		Role:     role,
		Verified: r.Header.Get("X-Verified") == "true",
	}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue(name))
}
