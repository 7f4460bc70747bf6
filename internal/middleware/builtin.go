package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// The built-in middleware kinds. Each is a variant of the one Middleware
// interface; there is no hierarchy beyond that.

// TransformMiddleware applies named per-field transforms to the packet's
// Data. Only string-valued fields are transformed; absent fields are
// skipped.
type TransformMiddleware struct {
	name       string
	transforms map[string]string // field -> operation
}

// Supported transform operations. Prefix takes its argument after a
// colon, e.g. "prefix:order-".
const (
	OpUppercase = "uppercase"
	OpLowercase = "lowercase"
	OpTrim      = "trim"
	OpPrefix    = "prefix"
)

// NewTransform creates a transformation middleware. Unknown operations
// are rejected at construction, not at processing time.
func NewTransform(name string, transforms map[string]string) (*TransformMiddleware, error) {
	for field, op := range transforms {
		switch {
		case op == OpUppercase, op == OpLowercase, op == OpTrim:
		case strings.HasPrefix(op, OpPrefix+":"):
		default:
			return nil, fmt.Errorf("unknown transform %q for field %q", op, field)
		}
	}
	return &TransformMiddleware{name: name, transforms: transforms}, nil
}

func (m *TransformMiddleware) Name() string { return m.name }

func (m *TransformMiddleware) Process(ctx context.Context, packet *DataPacket) (*DataPacket, error) {
	for field, op := range m.transforms {
		raw, ok := packet.Data[field]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		switch {
		case op == OpUppercase:
			packet.Data[field] = strings.ToUpper(value)
		case op == OpLowercase:
			packet.Data[field] = strings.ToLower(value)
		case op == OpTrim:
			packet.Data[field] = strings.TrimSpace(value)
		case strings.HasPrefix(op, OpPrefix+":"):
			packet.Data[field] = strings.TrimPrefix(op, OpPrefix+":") + value
		}
	}
	packet.Metadata["transformed_by"] = m.name
	return packet, nil
}

// ValidationMiddleware rejects packets that miss required fields or fail
// an optional CEL predicate evaluated over the packet's data and
// metadata. The predicate is compiled once at construction.
type ValidationMiddleware struct {
	name     string
	required []string
	program  cel.Program
	expr     string
}

// NewValidation creates a validation middleware. expr may be empty; when
// set it must be a CEL expression yielding a bool, with `data` and
// `metadata` in scope as maps.
func NewValidation(name string, required []string, expr string) (*ValidationMiddleware, error) {
	m := &ValidationMiddleware{name: name, required: required, expr: expr}

	if expr != "" {
		env, err := cel.NewEnv(
			cel.Variable("data", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
		)
		if err != nil {
			return nil, fmt.Errorf("creating CEL environment: %w", err)
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compiling predicate %q: %w", expr, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("building predicate program: %w", err)
		}
		m.program = program
	}

	return m, nil
}

func (m *ValidationMiddleware) Name() string { return m.name }

func (m *ValidationMiddleware) Process(ctx context.Context, packet *DataPacket) (*DataPacket, error) {
	for _, field := range m.required {
		if _, ok := packet.Data[field]; !ok {
			return packet, fmt.Errorf("missing required field %q", field)
		}
	}

	if m.program != nil {
		out, _, err := m.program.Eval(map[string]interface{}{
			"data":     packet.Data,
			"metadata": packet.Metadata,
		})
		if err != nil {
			return packet, fmt.Errorf("evaluating predicate: %w", err)
		}
		passed, ok := out.Value().(bool)
		if !ok {
			return packet, fmt.Errorf("predicate %q did not yield a bool", m.expr)
		}
		if !passed {
			return packet, fmt.Errorf("predicate %q rejected packet", m.expr)
		}
	}

	packet.Metadata["validated_by"] = m.name
	return packet, nil
}

// RouteRule tags a packet and sets its route when the named field equals
// the expected value. An empty Field matches every packet.
type RouteRule struct {
	Field string
	Value interface{}
	Route string
	Tags  []string
}

// RoutingMiddleware tags packets for downstream consumers. The first
// matching rule wins; packets matching no rule pass through untouched.
type RoutingMiddleware struct {
	name  string
	rules []RouteRule
}

// NewRouting creates a routing middleware from an ordered rule list.
func NewRouting(name string, rules []RouteRule) *RoutingMiddleware {
	return &RoutingMiddleware{name: name, rules: rules}
}

func (m *RoutingMiddleware) Name() string { return m.name }

func (m *RoutingMiddleware) Process(ctx context.Context, packet *DataPacket) (*DataPacket, error) {
	for _, rule := range m.rules {
		if rule.Field != "" && packet.Data[rule.Field] != rule.Value {
			continue
		}
		if rule.Route != "" {
			packet.Metadata["route"] = rule.Route
		}
		for _, tag := range rule.Tags {
			packet.AddTag(tag)
		}
		break
	}
	return packet, nil
}
