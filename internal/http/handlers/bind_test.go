package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/citypulse/cityhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindTarget() *gin.Engine {
	r := gin.New()

	r.POST("/bind", func(ctx *gin.Context) {
		var req handlers.SignUpRequest

		if !handlers.BindJSON(ctx, &req) {
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func TestBindJSONValidationFieldNames(t *testing.T) {
	r := bindTarget()

	w := doJSON(r, http.MethodPost, "/bind", `{"email":"nope","password":"short"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body bindErrorBody

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// field names must be the json tag names, not the Go struct names
	got := map[string]string{}

	for _, fe := range body.Error.Details.Fields {
		got[fe.Field] = fe.Rule
	}

	if got["email"] != "email" {
		t.Errorf("email field error = %q, want rule %q (all: %v)", got["email"], "email", got)
	}

	if got["password"] != "min" {
		t.Errorf("password field error = %q, want rule %q (all: %v)", got["password"], "min", got)
	}
}

func TestBindJSONSyntaxError(t *testing.T) {
	r := bindTarget()

	w := doJSON(r, http.MethodPost, "/bind", `{"email": oops`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body bindErrorBody

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if body.Error.Details.JSON != "invalid_json_syntax" {
		t.Errorf("details.json = %q, body %s", body.Error.Details.JSON, w.Body.String())
	}
}

func TestBindJSONTypeMismatch(t *testing.T) {
	r := bindTarget()

	w := doJSON(r, http.MethodPost, "/bind", `{"email":"a@x.com","password":12345678}`, "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var body bindErrorBody

	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if body.Error.Details.JSON != "invalid_json_type" {
		t.Errorf("details.json = %q, body %s", body.Error.Details.JSON, w.Body.String())
	}

	if len(body.Error.Details.Fields) == 0 || body.Error.Details.Fields[0].Field != "password" {
		t.Errorf("expected field-level type error for password, body %s", w.Body.String())
	}
}

func TestBindJSONHappyPath(t *testing.T) {
	r := bindTarget()

	w := doJSON(r, http.MethodPost, "/bind", `{"email":"a@x.com","password":"long-enough"}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}
