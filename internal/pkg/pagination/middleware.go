package pagination

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

type ctxKey struct{}

// ErrorBody is written when strict validation fails.
type ErrorBody struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// Middleware enforces strict pagination on a route. Absent parameters take
// the defaults; anything present must be an integer inside the bounds.
// Invalid requests get a 400 listing every problem. Valid ones continue with
// the normalized Params in the request context.
func Middleware(opts Options) func(http.Handler) http.Handler {
	opts = opts.withDefaults()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var errs []string

			page, ok := rawInt(q.Get("page"), 1)
			if !ok {
				errs = append(errs, "Page must be a valid integer")
			}
			limit, ok := rawInt(q.Get("limit"), opts.DefaultLimit)
			if !ok {
				errs = append(errs, "Limit must be a valid integer")
			}
			if len(errs) == 0 {
				v := Validate(page, limit, opts.MaxLimit)
				errs = v.Errors
			}
			if len(errs) > 0 {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(ErrorBody{
					Success: false,
					Message: "Invalid pagination parameters",
					Errors:  errs,
				})
				return
			}

			p := Params{Page: page, Limit: limit, Skip: (page - 1) * limit}
			next.ServeHTTP(w, r.WithContext(WithParams(r.Context(), p)))
		})
	}
}

func rawInt(s string, def int) (int, bool) {
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithParams stores p in ctx.
func WithParams(ctx context.Context, p Params) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the params stored by Middleware. The bool is false
// when the route was not wrapped.
func FromContext(ctx context.Context) (Params, bool) {
	p, ok := ctx.Value(ctxKey{}).(Params)
	return p, ok
}

// FromRequest prefers params set by Middleware and falls back to the
// forgiving Normalize on the raw query.
func FromRequest(r *http.Request, opts Options) Params {
	if p, ok := FromContext(r.Context()); ok {
		return p
	}
	return Normalize(r.URL.Query(), opts)
}
