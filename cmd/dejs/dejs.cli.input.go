package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/itsatony/go-dejs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// loadData reads template locals from a JSON file or string
func loadData(jsonStr, filePath string) (map[string]any, error) {
	var jsonData []byte

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		jsonData = data
	} else if jsonStr != "" {
		jsonData = []byte(jsonStr)
	} else {
		return make(map[string]any), nil
	}

	var result map[string]any
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// newLogger returns a development logger on stderr, or a no-op logger
func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(stderr),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

// newEngine builds an engine from an optional YAML configuration file
func newEngine(configPath string, logger *zap.Logger, stderr io.Writer) (*dejs.Engine, error) {
	var opts []dejs.Option
	if configPath != "" {
		cfg, err := dejs.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if opts, err = cfg.Options(); err != nil {
			return nil, err
		}
		logger.Debug(dejs.LogMsgConfigLoaded, zap.String(dejs.LogFieldPath, configPath))
	}
	opts = append(opts, dejs.WithLogger(logger), dejs.WithDebugWriter(stderr))
	return dejs.New(opts...)
}
