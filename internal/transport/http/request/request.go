package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/corray333/backend-labs/cafe/internal/service/models/order"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}

		return nil
	}, decimal.Decimal{})

	return v
}

// DecodeJSON reads a JSON body into dst. Unknown fields are ignored.
// Malformed or oversized bodies are reported as order.ErrInvalidRequest.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: request body too large", order.ErrInvalidRequest)
		}

		return fmt.Errorf("%w: malformed JSON body", order.ErrInvalidRequest)
	}

	return nil
}

// Validate checks the validate tags of v and reports the first failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", order.ErrInvalidRequest, err)
	}

	fe := verrs[0]
	field := strings.SplitN(fe.Namespace(), ".", 2)
	name := field[len(field)-1]

	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", order.ErrInvalidRequest, name)
	case "min":
		return fmt.Errorf("%w: %s must not be empty", order.ErrInvalidRequest, name)
	case "gte":
		return fmt.Errorf("%w: %s must be at least %s", order.ErrInvalidRequest, name, fe.Param())
	default:
		return fmt.Errorf("%w: %s is invalid", order.ErrInvalidRequest, name)
	}
}
