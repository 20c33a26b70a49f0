package engine

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"required-backend/internal/dsl"
	"required-backend/internal/instrument"
	"required-backend/internal/logging"
	"required-backend/internal/metadata"
	"required-backend/internal/requires"
)

type Handler struct {
	registry *metadata.Registry
	compiler *dsl.Compiler
}

func NewHandler(reg *metadata.Registry, compiler *dsl.Compiler) *Handler {
	return &Handler{registry: reg, compiler: compiler}
}

// ValidateRuleSet handles POST /api/validate/:ruleset
func (h *Handler) ValidateRuleSet(c *fiber.Ctx) error {
	rs, err := h.resolveRuleSet(c)
	if err != nil {
		return err
	}

	var record requires.Fields
	if err := json.Unmarshal(c.Body(), &record); err != nil {
		return InvalidPayloadError("Request body must be a JSON object")
	}

	ctx := c.UserContext()
	if detail := ValidateRecord(ctx, rs.Name, rs.Graph, &record); detail != nil {
		return ValidationError([]ErrorDetail{*detail})
	}

	logging.FromContext(ctx).Debug("record valid", "ruleset", rs.Name)
	return c.JSON(fiber.Map{"data": fiber.Map{
		"valid":      true,
		"ruleset":    rs.Name,
		"request_id": requestID(c),
	}})
}

// ValidateText handles POST /api/validate with requirement text supplied
// alongside the record.
func (h *Handler) ValidateText(c *fiber.Ctx) error {
	var body struct {
		Requires string           `json:"requires"`
		Record   *requires.Fields `json:"record"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return InvalidPayloadError("Invalid request body")
	}
	if body.Requires == "" {
		return InvalidPayloadError("requires is required")
	}
	if body.Record == nil {
		body.Record = requires.NewRecord()
	}

	graph, err := h.compiler.Compile(body.Requires)
	if err != nil {
		return InvalidRequirementsError(err)
	}

	if detail := ValidateRecord(c.UserContext(), "", graph, body.Record); detail != nil {
		return ValidationError([]ErrorDetail{*detail})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"valid":      true,
		"request_id": requestID(c),
	}})
}

// resolveRuleSet looks up the rule set named in the route. It returns an
// AppError for unknown names so callers can return it directly.
func (h *Handler) resolveRuleSet(c *fiber.Ctx) (*metadata.CompiledRuleSet, error) {
	name := c.Params("ruleset")
	rs := h.registry.Get(name)
	if rs == nil {
		return nil, UnknownRuleSetError(name)
	}
	return rs, nil
}

func requestID(c *fiber.Ctx) string {
	if id := instrument.TraceIDFromContext(c.UserContext()); id != "" {
		return id
	}
	return uuid.New().String()
}
