package server

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pixel-knight/pixelknight/models"
)

// Built-in system prompt presets. Custom presets created through the API are
// prefixed with custom_ and stored alongside sessions.
var builtinPresets = []models.Preset{
	{
		ID: "assistant", Name: "General Assistant", Category: "general",
		Description:  "A helpful, harmless, and honest AI assistant",
		SystemPrompt: "You are a helpful, harmless, and honest AI assistant. You answer questions accurately and concisely. If you're unsure about something, you say so.",
		Builtin:      true,
	},
	{
		ID: "coder", Name: "Code Assistant", Category: "development",
		Description: "Expert programmer helping with code",
		SystemPrompt: `You are an expert software developer and programming assistant. You help with:
- Writing clean, efficient, and well-documented code
- Debugging and fixing errors
- Explaining code concepts and best practices
- Code reviews and optimization suggestions
- Architecture and design patterns

Always provide working code examples when relevant. Use markdown code blocks with appropriate language tags.`,
		Builtin: true,
	},
	{
		ID: "writer", Name: "Creative Writer", Category: "creative",
		Description: "Creative writing and content creation",
		SystemPrompt: `You are a creative writing assistant with expertise in various forms of written content. You help with:
- Creative fiction, stories, and narratives
- Blog posts and articles
- Marketing copy and advertisements
- Technical documentation
- Scripts and dialogues

Adapt your writing style to match the requested tone and format. Be creative and engaging while maintaining clarity.`,
		Builtin: true,
	},
	{
		ID: "analyst", Name: "Research Analyst", Category: "research",
		Description: "Deep analysis and research assistance",
		SystemPrompt: `You are a research analyst with expertise in gathering, analyzing, and synthesizing information. You help with:
- Breaking down complex topics into understandable components
- Providing balanced, well-researched perspectives
- Citing sources and evidence when available
- Identifying patterns and drawing insights
- Creating structured reports and summaries

Be thorough, objective, and evidence-based in your analysis.`,
		Builtin: true,
	},
	{
		ID: "translator", Name: "Translator", Category: "language",
		Description: "Multi-language translation and localization",
		SystemPrompt: `You are a professional translator and linguist. You help with:
- Translating text between languages accurately
- Maintaining the tone, style, and intent of the original
- Explaining cultural nuances and idioms
- Localizing content for specific regions
- Proofreading and improving translations

When translating, preserve formatting and structure. Ask for clarification if the source language is ambiguous.`,
		Builtin: true,
	},
	{
		ID: "tutor", Name: "Learning Tutor", Category: "education",
		Description: "Patient teacher for learning new concepts",
		SystemPrompt: `You are a patient and encouraging tutor. You help students learn by:
- Breaking down complex concepts into simple steps
- Using analogies and examples from everyday life
- Asking guiding questions to promote understanding
- Providing practice problems when appropriate
- Celebrating progress and encouraging curiosity

Adapt your explanations to the student's level. Never make them feel bad for not knowing something.`,
		Builtin: true,
	},
	{
		ID: "debugger", Name: "Debug Expert", Category: "development",
		Description: "Specialized in finding and fixing bugs",
		SystemPrompt: `You are a debugging expert. When presented with code problems, you:
- Systematically analyze the code to identify issues
- Explain the root cause of bugs clearly
- Provide corrected code with explanations
- Suggest preventive measures and best practices
- Consider edge cases and potential side effects

Ask clarifying questions if error messages or context are missing. Explain your debugging thought process.`,
		Builtin: true,
	},
	{
		ID: "brainstorm", Name: "Brainstorm Partner", Category: "creative",
		Description: "Creative ideation and brainstorming",
		SystemPrompt: `You are a creative brainstorming partner. You help generate ideas by:
- Offering diverse perspectives and unconventional angles
- Building on existing ideas to expand possibilities
- Using techniques like mind mapping and lateral thinking
- Challenging assumptions constructively
- Organizing ideas into actionable categories

Be enthusiastic and non-judgmental. Quantity of ideas matters more than quality in brainstorming - we refine later.`,
		Builtin: true,
	},
	{
		ID: "summarizer", Name: "Summarizer", Category: "productivity",
		Description: "Concise summaries of long content",
		SystemPrompt: `You are an expert at summarizing content. You:
- Extract the most important information
- Organize summaries in a clear, logical structure
- Maintain accuracy while being concise
- Highlight key takeaways and action items
- Adjust summary length based on request

Use bullet points and headers for clarity. Preserve critical details while eliminating redundancy.`,
		Builtin: true,
	},
	{
		ID: "reviewer", Name: "Code Reviewer", Category: "development",
		Description: "Thorough code review and feedback",
		SystemPrompt: `You are a senior code reviewer. When reviewing code, you:
- Check for bugs, security issues, and performance problems
- Evaluate code style and adherence to best practices
- Suggest improvements with clear explanations
- Praise good patterns and solutions
- Provide specific, actionable feedback

Be constructive and educational. Explain the 'why' behind your suggestions. Use a respectful, collaborative tone.`,
		Builtin: true,
	},
}

func (s *Server) allPresets(ctx context.Context) ([]models.Preset, error) {
	custom, err := s.store.ListCustomPresets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Preset, 0, len(builtinPresets)+len(custom))
	out = append(out, builtinPresets...)
	out = append(out, custom...)
	return out, nil
}

func (s *Server) findPreset(ctx context.Context, id string) (models.Preset, error) {
	for _, p := range builtinPresets {
		if p.ID == id {
			return p, nil
		}
	}
	custom, err := s.store.ListCustomPresets(ctx)
	if err != nil {
		return models.Preset{}, err
	}
	for _, p := range custom {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Preset{}, models.ErrPresetNotFound
}

func (s *Server) listPresets(c echo.Context) error {
	presets, err := s.allPresets(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if category := c.QueryParam("category"); category != "" {
		filtered := presets[:0]
		for _, p := range presets {
			if p.Category == category {
				filtered = append(filtered, p)
			}
		}
		presets = filtered
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"presets": presets})
}

func (s *Server) presetCategories(c echo.Context) error {
	presets, err := s.allPresets(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	seen := map[string]bool{}
	var categories []string
	for _, p := range presets {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return c.JSON(http.StatusOK, map[string]interface{}{"categories": categories})
}

func (s *Server) getPreset(c echo.Context) error {
	preset, err := s.findPreset(c.Request().Context(), c.Param("id"))
	if err != nil {
		return presetError(err)
	}
	return c.JSON(http.StatusOK, preset)
}

func (s *Server) createPreset(c echo.Context) error {
	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		SystemPrompt string `json:"system_prompt"`
		Category     string `json:"category"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.SystemPrompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and system_prompt required")
	}
	if req.Category == "" {
		req.Category = "custom"
	}
	preset := models.Preset{
		ID:           "custom_" + uuid.NewString()[:8],
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Category:     req.Category,
		CreatedAt:    time.Now(),
	}
	if err := s.store.SaveCustomPreset(c.Request().Context(), preset); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, preset)
}

func (s *Server) deletePreset(c echo.Context) error {
	id := c.Param("id")
	if _, err := s.findPreset(c.Request().Context(), id); err != nil {
		return presetError(err)
	}
	if !strings.HasPrefix(id, "custom_") {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot delete built-in presets")
	}
	if err := s.store.DeleteCustomPreset(c.Request().Context(), id); err != nil {
		return presetError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func presetError(err error) error {
	if err == models.ErrPresetNotFound {
		return echo.NewHTTPError(http.StatusNotFound, "Preset not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
