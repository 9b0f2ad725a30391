// Package router mounts the procurement HTTP resources on a gin engine.
package router

import (
	"fmt"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Route binds one method and relative path to a handler.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

func get(p string, h gin.HandlerFunc) Route    { return Route{http.MethodGet, p, h} }
func post(p string, h gin.HandlerFunc) Route   { return Route{http.MethodPost, p, h} }
func patch(p string, h gin.HandlerFunc) Route  { return Route{http.MethodPatch, p, h} }
func remove(p string, h gin.HandlerFunc) Route { return Route{http.MethodDelete, p, h} }

// Resource is a group of routes under one prefix, e.g. /orders.
type Resource struct {
	Prefix string
	Routes []Route
}

// API mounts resources under /api/{version}. Middleware added with Use runs
// for API routes only, so probes registered on the engine stay unauthenticated.
type API struct {
	version    string
	middleware []gin.HandlerFunc
	resources  []Resource
}

// NewAPI defaults an empty version to v1.
func NewAPI(version string) *API {
	if version == "" {
		version = "v1"
	}
	return &API{version: version}
}

func (a *API) BasePath() string {
	return "/api/" + a.version
}

func (a *API) Use(middleware ...gin.HandlerFunc) *API {
	a.middleware = append(a.middleware, middleware...)
	return a
}

func (a *API) Mount(resources ...Resource) *API {
	a.resources = append(a.resources, resources...)
	return a
}

// Install registers every mounted route. It fails before touching the engine
// when two routes share a method and path.
func (a *API) Install(engine gin.IRouter) error {
	seen := make(map[string]bool)
	for _, res := range a.resources {
		for _, rt := range res.Routes {
			key := rt.Method + " " + path.Join(res.Prefix, rt.Path)
			if seen[key] {
				return fmt.Errorf("router: duplicate route %s", key)
			}
			seen[key] = true
		}
	}

	api := engine.Group(a.BasePath(), a.middleware...)
	for _, res := range a.resources {
		group := api.Group(res.Prefix)
		for _, rt := range res.Routes {
			group.Handle(rt.Method, rt.Path, rt.Handler)
		}
	}
	return nil
}
