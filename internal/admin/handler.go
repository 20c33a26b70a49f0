package admin

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"required-backend/internal/dsl"
	"required-backend/internal/engine"
	"required-backend/internal/logging"
	"required-backend/internal/metadata"
	"required-backend/internal/requires"
)

type Handler struct {
	registry *metadata.Registry
	compiler *dsl.Compiler
	rulesDir string
}

// NewHandler creates the admin handler. rulesDir is the directory reloaded
// by POST /api/_admin/reload; reloading is disabled when it is empty.
func NewHandler(reg *metadata.Registry, compiler *dsl.Compiler, rulesDir string) *Handler {
	return &Handler{registry: reg, compiler: compiler, rulesDir: rulesDir}
}

func RegisterAdminRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	admin := app.Group("/api/_admin", middleware...)

	admin.Get("/rulesets", h.ListRuleSets)
	admin.Get("/rulesets/:name", h.GetRuleSet)
	admin.Post("/rulesets", h.CreateRuleSet)
	admin.Put("/rulesets/:name", h.UpdateRuleSet)
	admin.Delete("/rulesets/:name", h.DeleteRuleSet)
	admin.Get("/rulesets/:name/graph", h.ExplainRuleSet)

	admin.Post("/explain", h.Explain)
	admin.Post("/reload", h.Reload)
}

// --- Rule set endpoints ---

func (h *Handler) ListRuleSets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.registry.All()})
}

func (h *Handler) GetRuleSet(c *fiber.Ctx) error {
	name := c.Params("name")
	rs := h.registry.Get(name)
	if rs == nil {
		return engine.UnknownRuleSetError(name)
	}
	return c.JSON(fiber.Map{"data": rs})
}

func (h *Handler) CreateRuleSet(c *fiber.Ctx) error {
	rs, err := parseRuleSet(c)
	if err != nil {
		return err
	}
	if rs.Name == "" {
		return engine.InvalidPayloadError("name is required")
	}
	compiled, err := h.compile(rs)
	if err != nil {
		return err
	}
	if !h.registry.PutIfAbsent(compiled) {
		return engine.ConflictError("Rule set already exists: " + rs.Name)
	}
	logging.FromContext(c.UserContext()).Info("rule set created", "ruleset", rs.Name, "id", compiled.ID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": compiled})
}

func (h *Handler) UpdateRuleSet(c *fiber.Ctx) error {
	name := c.Params("name")
	if h.registry.Get(name) == nil {
		return engine.UnknownRuleSetError(name)
	}

	rs, err := parseRuleSet(c)
	if err != nil {
		return err
	}
	if rs.Name != "" && rs.Name != name {
		return engine.InvalidPayloadError("name in body does not match the URL")
	}
	rs.Name = name

	compiled, err := h.compile(rs)
	if err != nil {
		return err
	}
	h.registry.Put(compiled)
	logging.FromContext(c.UserContext()).Info("rule set updated", "ruleset", name, "id", compiled.ID)
	return c.JSON(fiber.Map{"data": compiled})
}

func (h *Handler) DeleteRuleSet(c *fiber.Ctx) error {
	name := c.Params("name")
	if !h.registry.Delete(name) {
		return engine.UnknownRuleSetError(name)
	}
	logging.FromContext(c.UserContext()).Info("rule set deleted", "ruleset", name)
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": name}})
}

// --- Graph inspection ---

// NodeView is the JSON form of one graph trigger.
type NodeView struct {
	Subject      string   `json:"subject"`
	Trigger      string   `json:"trigger"`
	Guard        bool     `json:"guard"`
	Dependencies []string `json:"dependencies"`
}

// DescribeGraph lists the triggers of g in a stable order.
func DescribeGraph(g *requires.Graph) []NodeView {
	nodes := g.Nodes()
	views := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		deps := make([]string, len(n.Dependencies))
		for i, d := range n.Dependencies {
			deps[i] = d.String()
		}
		views = append(views, NodeView{
			Subject:      n.Subject,
			Trigger:      n.Trigger,
			Guard:        n.Guard,
			Dependencies: deps,
		})
	}
	return views
}

func (h *Handler) ExplainRuleSet(c *fiber.Ctx) error {
	name := c.Params("name")
	rs := h.registry.Get(name)
	if rs == nil {
		return engine.UnknownRuleSetError(name)
	}
	return c.JSON(fiber.Map{"data": DescribeGraph(rs.Graph)})
}

// Explain compiles requirement text without registering it.
func (h *Handler) Explain(c *fiber.Ctx) error {
	var body struct {
		Requires string `json:"requires"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return engine.InvalidPayloadError("Invalid request body")
	}
	g, err := h.compiler.Compile(body.Requires)
	if err != nil {
		return engine.InvalidRequirementsError(err)
	}
	return c.JSON(fiber.Map{"data": DescribeGraph(g)})
}

func (h *Handler) Reload(c *fiber.Ctx) error {
	if h.rulesDir == "" {
		return engine.NewAppError("RELOAD_DISABLED", 400, "No rules directory configured")
	}
	n, err := metadata.LoadDir(c.UserContext(), h.rulesDir, h.compiler, h.registry)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"loaded": n}})
}

// --- helpers ---

func parseRuleSet(c *fiber.Ctx) (*metadata.RuleSet, error) {
	var rs metadata.RuleSet
	if err := json.Unmarshal(c.Body(), &rs); err != nil {
		return nil, engine.InvalidPayloadError("Invalid rule set JSON: " + err.Error())
	}
	return &rs, nil
}

func (h *Handler) compile(rs *metadata.RuleSet) (*metadata.CompiledRuleSet, error) {
	compiled, err := metadata.Compile(rs, h.compiler, "api")
	if err != nil {
		var se *dsl.SyntaxError
		var dc *dsl.DisallowedCallError
		var ce *requires.ConstructionError
		if errors.As(err, &se) || errors.As(err, &dc) || errors.As(err, &ce) {
			return nil, engine.InvalidRequirementsError(err)
		}
		return nil, engine.InvalidPayloadError(err.Error())
	}
	return compiled, nil
}
