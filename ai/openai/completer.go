// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/newswire/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client        llms.Model
	temperature   float64
	parseAttempts int
	logger        *slog.Logger
}

var _ ai.Completer = (*Completer)(nil)

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client:        client,
		temperature:   config.Temperature,
		parseAttempts: config.ParseAttempts,
		logger:        slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

func messages(system, prompt string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
}

func (c *Completer) generate(ctx context.Context, system, prompt string, opts ...llms.CallOption) (string, error) {
	opts = append(opts, llms.WithTemperature(c.temperature))
	response, err := c.client.GenerateContent(ctx, messages(system, prompt), opts...)
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyResponse
	}
	return response.Choices[0].Content, nil
}

// Complete returns the raw reply text for a system and user prompt.
func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	text, err := c.generate(ctx, system, prompt)
	if err != nil {
		c.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	return text, nil
}

// CompleteJSON requests a JSON object reply and decodes it into out.
// Malformed replies are retried up to the configured number of attempts.
func (c *Completer) CompleteJSON(ctx context.Context, system, prompt string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.parseAttempts; attempt++ {
		text, err := c.generate(ctx, system, prompt, llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return err
		}

		if err := ai.DecodeObject(text, out); err != nil {
			lastErr = err
			c.logger.Warn("error parsing completion response",
				"attempt", attempt+1,
				"response", text,
				"err", err)
			continue
		}
		return nil
	}

	c.logger.Error("failed to parse completion response after retries", "err", lastErr)
	return lastErr
}
