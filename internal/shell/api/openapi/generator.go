// Package openapi builds the OpenAPI 3.0 document of the API by reflecting
// on the request and response types of each registered resource.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/shopspring/decimal"
)

var (
	timeType        = reflect.TypeOf(time.Time{})
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces an OpenAPI 3.0 document from registered resources.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	resources   []ResourceInfo
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// ResourceInfo describes one resource mounted under /api/v1/{Name}.
type ResourceInfo struct {
	Name           string // collection name, e.g. "coupons"
	Model          any    // response body
	CreateModel    any    // POST body; defaults to Model
	SupportsFind   bool   // GET /{name}/{id}
	SupportsCreate bool   // POST /{name}
	SupportsDelete bool   // DELETE /{name}/{id}
	LookupFields   []string
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version. Empty values are ignored.
func WithVersion(version string) Option {
	return func(g *Generator) {
		if version != "" {
			g.version = version
		}
	}
}

// WithDescription sets the API description.
func WithDescription(description string) Option {
	return func(g *Generator) {
		g.description = description
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Coupons API",
		version:     "1.0.0",
		description: "Promotional coupon management",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// RegisterResource adds a resource to the document.
func (g *Generator) RegisterResource(info ResourceInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resources = append(g.resources, info)
	g.cachedSpec = nil
}

// Generate produces the document. The result is cached until the next
// RegisterResource.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}

	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	addErrorSchema(spec)

	for _, res := range g.resources {
		g.addResourceToSpec(spec, res)
	}

	g.cachedSpec = spec
	return spec
}

// Handler serves the document as JSON.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Schema Generation
// =============================================================================

func addErrorSchema(spec *openapi3.T) {
	spec.Components.Schemas["Error"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"message":   &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
				"status":    &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema()},
				"timestamp": &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()},
			},
			Required: []string{"message", "status", "timestamp"},
		},
	}
}

func (g *Generator) addResourceToSpec(spec *openapi3.T, res ResourceInfo) {
	basePath := "/api/v1/" + res.Name
	schemaName := capitalize(singularize(res.Name))

	spec.Components.Schemas[schemaName] = extractSchema(res.Model)
	createModel := res.CreateModel
	if createModel == nil {
		createModel = res.Model
	}
	spec.Components.Schemas["Create"+schemaName+"Request"] = extractSchema(createModel)

	if res.SupportsCreate {
		collection := &openapi3.PathItem{
			Post: &openapi3.Operation{
				OperationID: "create" + schemaName,
				Summary:     "Create a " + singularize(res.Name),
				Tags:        []string{capitalize(res.Name)},
				RequestBody: &openapi3.RequestBodyRef{
					Value: openapi3.NewRequestBody().
						WithRequired(true).
						WithJSONSchemaRef(schemaRef("Create" + schemaName + "Request")),
				},
				Responses: responses(
					http.StatusCreated, schemaName,
					http.StatusBadRequest, "Error",
				),
			},
		}
		spec.Paths.Set(basePath, collection)
	}

	item := &openapi3.PathItem{Parameters: openapi3.Parameters{pathParam("id", openapi3.NewInt64Schema())}}
	if res.SupportsFind {
		item.Get = &openapi3.Operation{
			OperationID: "get" + schemaName,
			Summary:     "Get a " + singularize(res.Name),
			Tags:        []string{capitalize(res.Name)},
			Responses: responses(
				http.StatusOK, schemaName,
				http.StatusNotFound, "Error",
			),
		}
	}
	if res.SupportsDelete {
		item.Delete = &openapi3.Operation{
			OperationID: "delete" + schemaName,
			Summary:     "Delete a " + singularize(res.Name),
			Tags:        []string{capitalize(res.Name)},
			Responses: responses(
				http.StatusNoContent, "",
				http.StatusBadRequest, "Error",
				http.StatusNotFound, "Error",
				http.StatusUnprocessableEntity, "Error",
			),
		}
	}
	if item.Get != nil || item.Delete != nil {
		spec.Paths.Set(basePath+"/{id}", item)
	}

	for _, field := range res.LookupFields {
		spec.Paths.Set(basePath+"/"+field+"/{"+field+"}", &openapi3.PathItem{
			Parameters: openapi3.Parameters{pathParam(field, openapi3.NewStringSchema())},
			Get: &openapi3.Operation{
				OperationID: "get" + schemaName + "By" + capitalize(field),
				Summary:     "Get a " + singularize(res.Name) + " by " + field,
				Tags:        []string{capitalize(res.Name)},
				Responses: responses(
					http.StatusOK, schemaName,
					http.StatusBadRequest, "Error",
					http.StatusNotFound, "Error",
				),
			},
		})
	}
}

// extractSchema builds an object schema from the exported fields of a struct,
// named after their json tags.
func extractSchema(model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
		}

		if propSchema := goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch {
	case t == decimalType, t == nullDecimalType:
		return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "decimal"}}
	case t.Kind() == reflect.Struct && t.ConvertibleTo(timeType):
		return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()}
	}

	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: openapi3.NewInt32Schema()}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema()}

	case reflect.Float32, reflect.Float64:
		return &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema()}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()}

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Ptr:
		schema := goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		return extractSchema(reflect.New(t).Interface())

	default:
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}
}

// =============================================================================
// Helpers
// =============================================================================

func schemaRef(name string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

func pathParam(name string, schema *openapi3.Schema) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter(name).WithSchema(schema),
	}
}

// responses builds a response set from (status, schema name) pairs. An
// empty schema name means no body.
func responses(pairs ...any) *openapi3.Responses {
	opts := make([]openapi3.NewResponsesOption, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		status := pairs[i].(int)
		name := pairs[i+1].(string)

		resp := openapi3.NewResponse().WithDescription(http.StatusText(status))
		if name != "" {
			resp = resp.WithJSONSchemaRef(schemaRef(name))
		}
		opts = append(opts, openapi3.WithStatus(status, &openapi3.ResponseRef{Value: resp}))
	}
	return openapi3.NewResponses(opts...)
}

// capitalize returns the string with the first letter capitalized.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// singularize performs basic singularization (removes trailing 's').
func singularize(s string) string {
	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "s") {
		return s[:len(s)-1]
	}
	return s
}
