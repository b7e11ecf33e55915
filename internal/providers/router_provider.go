package providers

import (
	"net/http"
	"rankview/internal/structures"

	"github.com/go-chi/chi/v5"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
	Handler() http.Handler
}

// RouterProvider keeps the registered routes for introspection and mounts
// them on a chi mux so handlers can read path parameters.
type RouterProvider struct {
	routes []structures.Route
	mux    *chi.Mux
}

func (rp *RouterProvider) add(method, url string, handler http.Handler) {
	wrapped := methodHandler(method, handler)
	rp.routes = append(rp.routes, structures.Route{
		Method:  method,
		Url:     url,
		Handler: wrapped,
	})
	rp.mux.Method(method, url, wrapped)
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(http.MethodPost, url, handler)
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

func (rp *RouterProvider) Handler() http.Handler {
	return rp.mux
}

func NewRouterProvider() RouterProviderInterface {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
	return &RouterProvider{mux: mux}
}

func methodHandler(method string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
