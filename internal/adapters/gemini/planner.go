// Package gemini implements the reasoning planner against the Gemini
// function-calling API. The model drives the loop through three declared
// tools: run a host script, look at the viewport, or read the execution log.
// A plain text reply is the final answer.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/maquette/pkg/domain"
	"github.com/aretw0/maquette/pkg/ports"
	"github.com/go-resty/resty/v2"
)

const (
	// DefaultModel is used when the caller does not pin one.
	DefaultModel = "gemini-2.5-flash"

	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	toolRunScript  = "run_host_script"
	toolScreenshot = "get_viewport_screenshot"
	toolLog        = "get_execution_log"
)

// defaultSystemInstruction frames the model as a host scripting assistant.
// The wording is adjustable per deployment; it is data, not behavior.
const defaultSystemInstruction = `You are a scripting assistant controlling a 3D creative application through small scripts.
Use run_host_script to make changes, declaring the operation category.
Use get_viewport_screenshot or get_execution_log only when you need to verify a result.
When the instruction is satisfied, reply with a short plain-text summary and no tool call.
When a script fails, read the error trace and correct the script instead of repeating it.`

// Planner implements ports.Planner over the Gemini REST API.
type Planner struct {
	client            *resty.Client
	model             string
	apiKey            string
	systemInstruction string
}

// Option configures the planner.
type Option func(*Planner)

// WithModel pins the model identifier.
func WithModel(model string) Option {
	return func(p *Planner) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint, for tests and proxies.
func WithBaseURL(baseURL string) Option {
	return func(p *Planner) {
		p.client.SetBaseURL(baseURL)
	}
}

// WithSystemInstruction replaces the default system prompt.
func WithSystemInstruction(text string) Option {
	return func(p *Planner) {
		p.systemInstruction = text
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Planner) {
		if timeout > 0 {
			p.client.SetTimeout(timeout)
		}
	}
}

// New creates a Gemini planner. The key is treated as an opaque credential.
func New(apiKey string, opts ...Option) *Planner {
	client := resty.New().
		SetBaseURL(defaultBaseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	p := &Planner{
		client:            client,
		model:             DefaultModel,
		apiKey:            apiKey,
		systemInstruction: defaultSystemInstruction,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wire types for the generateContent call. Only the fields the loop needs.

type part struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *inlineData       `json:"inline_data,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
	Tools             []struct {
		FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
	} `json:"tools"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Plan sends the instruction and the full turn history to the model and maps
// its reply onto a plan response.
func (p *Planner) Plan(ctx context.Context, req ports.PlanRequest) (*ports.PlanResponse, error) {
	body := generateRequest{
		Contents: p.buildContents(req),
	}
	if p.systemInstruction != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: p.systemInstruction}}}
	}
	body.Tools = make([]struct {
		FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
	}, 1)
	body.Tools[0].FunctionDeclarations = declarations()

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("/models/" + p.model + ":generateContent?key=" + p.apiKey)
	if err != nil {
		return nil, fmt.Errorf("gemini call failed: %w", err)
	}

	var reply generateResponse
	if err := json.Unmarshal(resp.Body(), &reply); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		if reply.Error != nil {
			return nil, fmt.Errorf("gemini rejected the request (HTTP %d): %s", resp.StatusCode(), reply.Error.Message)
		}
		return nil, fmt.Errorf("gemini rejected the request (HTTP %d)", resp.StatusCode())
	}
	if len(reply.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	return mapResponse(reply.Candidates[0].Content.Parts)
}

// buildContents replays the conversation: the instruction, then every turn as
// a model tool call plus its tool result, with observations inlined only on
// the turns that fetched them.
func (p *Planner) buildContents(req ports.PlanRequest) []content {
	contents := []content{{
		Role:  "user",
		Parts: []part{{Text: req.Instruction}},
	}}

	for _, turn := range req.History {
		if turn.Script.Body != "" {
			contents = append(contents, content{
				Role: "model",
				Parts: []part{{FunctionCall: &functionCall{
					Name: toolRunScript,
					Args: map[string]any{
						"code":     turn.Script.Body,
						"category": turn.Script.Category,
					},
				}}},
			})
			contents = append(contents, content{
				Role: "user",
				Parts: []part{{FunctionResponse: &functionResponse{
					Name:     toolRunScript,
					Response: resultPayload(turn),
				}}},
			})
		}
		if turn.Observation != nil {
			contents = append(contents, observationContents(turn.Observation)...)
		}
	}
	return contents
}

func resultPayload(turn domain.Turn) map[string]any {
	payload := map[string]any{
		"classification": turn.Kind.String(),
	}
	if turn.Result != nil {
		payload["status"] = string(turn.Result.Status)
		if turn.Result.Stdout != "" {
			payload["stdout"] = turn.Result.Stdout
		}
		if turn.Result.ErrorTrace != "" {
			payload["error_trace"] = turn.Result.ErrorTrace
		}
	}
	return payload
}

func observationContents(obs *domain.Observation) []content {
	tool := toolScreenshot
	if obs.Kind == domain.ObservationLog {
		tool = toolLog
	}

	call := content{
		Role:  "model",
		Parts: []part{{FunctionCall: &functionCall{Name: tool}}},
	}

	reply := content{Role: "user"}
	switch obs.Kind {
	case domain.ObservationImage:
		reply.Parts = []part{
			{FunctionResponse: &functionResponse{
				Name:     tool,
				Response: map[string]any{"status": "captured"},
			}},
			{InlineData: &inlineData{
				MIMEType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(obs.Image),
			}},
		}
	default:
		reply.Parts = []part{{FunctionResponse: &functionResponse{
			Name:     tool,
			Response: map[string]any{"status": "captured", "log": obs.Text},
		}}}
	}
	return []content{call, reply}
}

// mapResponse folds the candidate parts into one plan response. Parallel tool
// calls combine: a script call plus a screenshot call means execute then
// observe. Text with no tool call is the final answer.
func mapResponse(parts []part) (*ports.PlanResponse, error) {
	resp := &ports.PlanResponse{}
	var text string

	for _, pt := range parts {
		if pt.Text != "" {
			text += pt.Text
		}
		if pt.FunctionCall == nil {
			continue
		}
		switch pt.FunctionCall.Name {
		case toolRunScript:
			code, _ := pt.FunctionCall.Args["code"].(string)
			if code == "" {
				return nil, fmt.Errorf("model called %s without code", toolRunScript)
			}
			category, _ := pt.FunctionCall.Args["category"].(string)
			resp.Script = &domain.Script{Body: code, Category: category}
		case toolScreenshot:
			resp.WantsObservation = domain.ObservationImage
		case toolLog:
			resp.WantsObservation = domain.ObservationLog
		default:
			return nil, fmt.Errorf("model called unknown tool %q", pt.FunctionCall.Name)
		}
	}

	if resp.Done() {
		if text == "" {
			return nil, fmt.Errorf("model returned neither a tool call nor an answer")
		}
		resp.FinalAnswer = text
	}
	return resp, nil
}

func declarations() []functionDeclaration {
	return []functionDeclaration{
		{
			Name:        toolRunScript,
			Description: "Run a script inside the host application and return its output or error trace.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code": map[string]any{
						"type":        "string",
						"description": "The script body to execute.",
					},
					"category": map[string]any{
						"type":        "string",
						"description": "Operation category, e.g. scene-build, mesh-edit, render.",
					},
				},
				"required": []string{"code"},
			},
		},
		{
			Name:        toolScreenshot,
			Description: "Capture a rendered image of the current viewport for visual verification.",
		},
		{
			Name:        toolLog,
			Description: "Fetch the textual output of the last executed script.",
		},
	}
}

var _ ports.Planner = (*Planner)(nil)
