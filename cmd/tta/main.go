package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"texttoaudio/cfg"
	"texttoaudio/pkg/inference"
	"texttoaudio/pkg/tools"

	"github.com/google/uuid"
)

// tta sends one text to the configured model and writes the audio to a file.
func main() {
	var cfgPath, model, out string
	flag.StringVar(&cfgPath, "cfg-path", "cfg/cfg.yaml", "path to config file")
	flag.StringVar(&model, "model", "", "model identifier, overrides inference.model")
	flag.StringVar(&out, "out", "", "output file, named after the invocation and content type when empty")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(cfgPath, model, out, flag.Args(), logger); err != nil {
		logger.Error("tta failed", "kind", inference.KindOf(err).String(), "err", err)
		os.Exit(1)
	}
}

func run(cfgPath, model, out string, args []string, logger *slog.Logger) error {
	config, err := cfg.Load(cfgPath)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}

		text = strings.TrimRight(string(data), "\r\n")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := inference.New(http.DefaultClient, &config.Inference)

	res, err := client.Invoke(ctx, &inference.Request{
		InputText: text,
		Model:     model,
	})
	if err != nil {
		return err
	}

	if out == "" {
		out = uuid.NewString() + "." + tools.AudioExtension(res.ContentType)
	}

	if err := os.WriteFile(out, res.Audio, 0o644); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}

	logger.Info("audio written", "path", out, "content_type", res.ContentType, "bytes", len(res.Audio))

	return nil
}
