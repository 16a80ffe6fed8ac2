package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrCLIReply = errors.New("question CLI reply unusable")

// CLIClient generates questions through a locally installed claude binary,
// so a developer can try every model provider without API keys.
type CLIClient struct {
	path string
	log  *zap.Logger
}

func NewCLIClient(path string, log *zap.Logger) *CLIClient {
	if path == "" {
		path = "claude"
	}
	return &CLIClient{path: path, log: log}
}

// cliReply is the document printed by --output-format json.
type cliReply struct {
	Result  string `json:"result"`
	IsError bool   `json:"is_error"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (c *CLIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := []string{
		"--print",
		"--output-format", "json",
		"--max-turns", "1",
		"--system-prompt", systemPrompt,
	}
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = strings.NewReader(userPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	c.log.Debug("question CLI finished",
		zap.String("path", c.path),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()))

	if runErr != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("run %s: %w (stderr: %s)", c.path, runErr, strings.TrimSpace(stderr.String()))
	}

	return decodeCLIReply(stdout.Bytes())
}

// decodeCLIReply accepts the JSON envelope and falls back to plain text
// for CLI builds that ignore --output-format.
func decodeCLIReply(out []byte) (*LLMResponse, error) {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, fmt.Errorf("%w: empty output", ErrCLIReply)
	}

	var reply cliReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil || (reply.Result == "" && !reply.IsError) {
		return &LLMResponse{Content: text}, nil
	}
	if reply.IsError {
		return nil, fmt.Errorf("%w: %s", ErrCLIReply, reply.Result)
	}
	return &LLMResponse{
		Content:      reply.Result,
		PromptTokens: reply.Usage.InputTokens,
		OutputTokens: reply.Usage.OutputTokens,
	}, nil
}
