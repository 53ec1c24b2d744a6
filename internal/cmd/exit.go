package cmd

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/pokedexplorer/pokedex/internal/core"
)

// ExitCodeFor maps a command error to its foundry exit code.
func ExitCodeFor(err error) foundry.ExitCode {
	var fetchErr *core.FetchError
	switch {
	case stderrors.Is(err, errConfigLoad):
		return foundry.ExitConfigInvalid
	case stderrors.As(err, &fetchErr) && fetchErr.Kind == core.FailureTransport:
		return foundry.ExitExternalServiceUnavailable
	}
	return foundry.ExitFailure
}

// unwrapEnvelope returns the envelope carried by err, and the error it wraps.
func unwrapEnvelope(err error) (*errors.ErrorEnvelope, error) {
	envelope, ok := err.(*errors.ErrorEnvelope)
	if !ok {
		return nil, err
	}
	if original, ok := envelope.Original.(error); ok {
		return envelope, original
	}
	return envelope, err
}

type exitMeta struct {
	Code        int
	Name        string
	Category    string
	Description string
}

func exitInfo(exitCode foundry.ExitCode) exitMeta {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		return exitMeta{Code: int(exitCode), Name: "UNKNOWN"}
	}
	return exitMeta{Code: info.Code, Name: info.Name, Category: info.Category, Description: info.Description}
}

// ExitWithCode logs err through logger and exits with exitCode. A nil
// logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(exitCode, msg, err)
		return
	}

	info := exitInfo(exitCode)
	fields := []zap.Field{
		zap.Int("exit_code", info.Code),
		zap.String("exit_name", info.Name),
		zap.String("exit_category", info.Category),
	}
	envelope, cause := unwrapEnvelope(err)
	if envelope != nil {
		fields = append(fields,
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		)
		if len(envelope.Context) > 0 {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
	}
	logger.Error(msg, append(fields, zap.Error(cause))...)
	os.Exit(info.Code)
}

// ExitWithCodeStderr writes the failure to stderr, for use before or after
// the loggers are usable.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info := exitInfo(exitCode)

	envelope, cause := unwrapEnvelope(err)
	switch {
	case envelope != nil:
		fmt.Fprintf(os.Stderr, "Error: %s [%s]: %s\n", msg, envelope.Code, envelope.Message) // nolint:errcheck
		if cause != err {
			fmt.Fprintf(os.Stderr, "Cause: %v\n", cause) // nolint:errcheck
		}
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err) // nolint:errcheck
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg) // nolint:errcheck
	}
	if info.Description != "" {
		fmt.Fprintf(os.Stderr, "Exit code %d (%s): %s\n", info.Code, info.Name, info.Description) // nolint:errcheck
	}
	os.Exit(info.Code)
}
