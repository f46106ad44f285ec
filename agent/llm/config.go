package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/warin-th/tutorgrid/agent/contract"
	openrouterx "github.com/warin-th/tutorgrid/pkg/openrouter"
)

// Config is the OPENROUTER_* environment block. The base Model/Temperature
// apply everywhere unless a per-specialist or router override is set.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel  string `envconfig:"ROUTER_MODEL" split_words:"true"`
	MathModel    string `envconfig:"MATH_MODEL" split_words:"true"`
	PhysicsModel string `envconfig:"PHYSICS_MODEL" split_words:"true"`
	BiologyModel string `envconfig:"BIOLOGY_MODEL" split_words:"true"`
	GeneralModel string `envconfig:"GENERAL_MODEL" split_words:"true"`

	RouterTemperature  float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	MathTemperature    float32 `envconfig:"MATH_TEMPERATURE" split_words:"true" default:"-1"`
	PhysicsTemperature float32 `envconfig:"PHYSICS_TEMPERATURE" split_words:"true" default:"-1"`
	BiologyTemperature float32 `envconfig:"BIOLOGY_TEMPERATURE" split_words:"true" default:"-1"`
	GeneralTemperature float32 `envconfig:"GENERAL_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterForDomain resolves the model settings for one specialist.
func (c Config) OpenRouterForDomain(domain contractx.Domain) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	switch domain {
	case contractx.DomainMath:
		if v := strings.TrimSpace(c.MathModel); v != "" {
			modelName = v
		}
		if c.MathTemperature >= 0 {
			temp = c.MathTemperature
		}
	case contractx.DomainPhysics:
		if v := strings.TrimSpace(c.PhysicsModel); v != "" {
			modelName = v
		}
		if c.PhysicsTemperature >= 0 {
			temp = c.PhysicsTemperature
		}
	case contractx.DomainBiology:
		if v := strings.TrimSpace(c.BiologyModel); v != "" {
			modelName = v
		}
		if c.BiologyTemperature >= 0 {
			temp = c.BiologyTemperature
		}
	case contractx.DomainGeneral:
		if v := strings.TrimSpace(c.GeneralModel); v != "" {
			modelName = v
		}
		if c.GeneralTemperature >= 0 {
			temp = c.GeneralTemperature
		}
	}

	return c.toOpenRouter(modelName, temp)
}

// OpenRouterForRouter resolves the classification model. Routing runs at
// temperature 0 unless explicitly overridden; the label choice should not
// wander between identical requests.
func (c Config) OpenRouterForRouter() openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	if v := strings.TrimSpace(c.RouterModel); v != "" {
		modelName = v
	}

	temp := float32(0)
	if c.RouterTemperature >= 0 {
		temp = c.RouterTemperature
	}

	return c.toOpenRouter(modelName, temp)
}

func (c Config) toOpenRouter(modelName string, temp float32) openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
