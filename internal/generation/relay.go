// Package generation adapts an OpenAI-compatible chat-completions
// provider into ordered streams of incremental text fragments. The
// relay never buffers a full completion; callers accumulate.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/flowcraft-ai/flowcraft-backend/config"
	openai "github.com/sashabaranov/go-openai"
)

// ErrGenerationTimeout marks a provider call that exceeded the
// configured deadline.
var ErrGenerationTimeout = errors.New("generation timed out")

// Fragment is the narrow internal chunk type the rest of the system
// sees; upstream wire-format drift stops at this boundary. A non-nil
// Err is terminal: it is the last fragment on the channel.
type Fragment struct {
	Text string
	Err  error
}

// Relay drives the external generation provider.
type Relay struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewRelay(cfg config.ProviderConfig) *Relay {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Relay{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: timeout,
	}
}

// StreamTitle generates a short diagram title from a description.
func (r *Relay) StreamTitle(ctx context.Context, description string) <-chan Fragment {
	return r.stream(ctx, titlePrompt(description))
}

// StreamCode generates Mermaid DSL from a description. priorCode, if
// non-empty, primes the single provider call with the previous
// artifact; there is no multi-turn exchange.
func (r *Relay) StreamCode(ctx context.Context, description, priorCode string) <-chan Fragment {
	return r.stream(ctx, codePrompt(description, priorCode))
}

// StreamVersionComment summarizes what changed between two
// descriptions into a one-line version comment.
func (r *Relay) StreamVersionComment(ctx context.Context, oldDescription, newDescription string) <-chan Fragment {
	return r.stream(ctx, commentPrompt(oldDescription, newDescription))
}

// StreamEnhanceDescription rewrites a rough description into one
// better suited for diagram generation.
func (r *Relay) StreamEnhanceDescription(ctx context.Context, description string) <-chan Fragment {
	return r.stream(ctx, enhancePrompt(description))
}

func (r *Relay) stream(ctx context.Context, messages []openai.ChatCompletionMessage) <-chan Fragment {
	out := make(chan Fragment)

	go func() {
		defer close(out)

		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		stream, err := r.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:    r.model,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			emit(ctx, out, Fragment{Err: wrapStreamErr(ctx, err)})
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				emit(ctx, out, Fragment{Err: wrapStreamErr(ctx, err)})
				return
			}

			text := adaptChunk(resp)
			if text == "" {
				continue
			}
			if !emit(ctx, out, Fragment{Text: text}) {
				return
			}
		}
	}()

	return out
}

// adaptChunk maps a provider stream chunk onto plain delta text.
func adaptChunk(resp openai.ChatCompletionStreamResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Delta.Content
}

func emit(ctx context.Context, out chan<- Fragment, f Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func wrapStreamErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrGenerationTimeout
	}
	return fmt.Errorf("generation provider: %w", err)
}
