// Package narrator turns a battle log into announcer commentary using
// Gemini.
package narrator

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/pokebattle/internal/engine"
	"github.com/tatianab/pokebattle/internal/models"
)

//go:embed prompts/narrate_battle.txt
var narrateBattlePrompt string

var narrateTmpl = template.Must(template.New("narrate_battle").Parse(narrateBattlePrompt))

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// maxTurns is how many of the latest turns go into a prompt.
const maxTurns = 8

// Narration is the parsed model reply.
type Narration struct {
	Headline   string `yaml:"headline"`
	Commentary string `yaml:"commentary"`
}

func (n Narration) String() string {
	if n.Headline == "" {
		return n.Commentary
	}
	return n.Headline + "\n" + n.Commentary
}

type Narrator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// New connects to Gemini with apiKey.
func New(ctx context.Context, apiKey, modelName string) (*Narrator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("no Gemini API key configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Narrator{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (n *Narrator) Close() {
	if n != nil && n.client != nil {
		n.client.Close()
	}
}

// Narrate asks the model to commentate on s.
func (n *Narrator) Narrate(ctx context.Context, s *models.BattleSession) (Narration, error) {
	prompt, err := RenderPrompt(s)
	if err != nil {
		return Narration{}, err
	}
	resp, err := n.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Narration{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Narration{}, fmt.Errorf("no content returned from Gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Narration{}, fmt.Errorf("unexpected response type from Gemini")
	}
	return ParseNarration(string(text))
}

func fighterLine(f models.Fighter) string {
	if f.Empty() {
		return "(empty)"
	}
	return fmt.Sprintf("%s [%s] %d/%d HP", f.Pokemon.DisplayName(), strings.Join(f.Pokemon.TypeNames(), "/"), f.CurrentHP, f.MaxHP())
}

// RenderPrompt fills the narration template for s.
func RenderPrompt(s *models.BattleSession) (string, error) {
	logs := s.Logs
	earlier := 0
	if len(logs) > maxTurns {
		earlier = len(logs) - maxTurns
		logs = logs[earlier:]
	}
	turns := make([]string, len(logs))
	for i, l := range logs {
		turns[i] = engine.Describe(l)
	}

	data := struct {
		Left, Right string
		Earlier     int
		Turns       []string
		Outcome     string
	}{
		Left:    fighterLine(s.Left),
		Right:   fighterLine(s.Right),
		Earlier: earlier,
		Turns:   turns,
		Outcome: engine.Outcome(s),
	}
	var buf bytes.Buffer
	if err := narrateTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseNarration reads a YAML reply, tolerating a code fence around it.
func ParseNarration(text string) (Narration, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	var n Narration
	if err := yaml.Unmarshal([]byte(clean), &n); err != nil {
		return Narration{}, fmt.Errorf("failed to parse YAML: %v\nOutput was: %s", err, clean)
	}
	if n.Headline == "" && n.Commentary == "" {
		return Narration{}, fmt.Errorf("empty narration\nOutput was: %s", clean)
	}
	return n, nil
}
