package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/pensieri/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type TokensSettings struct {
	Model string `glazed.parameter:"model"`
	Codec string `glazed.parameter:"codec"`
	Input string `glazed.parameter:"input"`
}

func tokensFlags() []*parameters.ParameterDefinition {
	return []*parameters.ParameterDefinition{
		parameters.NewParameterDefinition(
			"model",
			parameters.ParameterTypeString,
			parameters.WithHelp("Model used for encoding"),
			parameters.WithDefault(""),
		),
		parameters.NewParameterDefinition(
			"codec",
			parameters.ParameterTypeString,
			parameters.WithHelp("Codec used when --model is empty or unknown (default "+tokens.DefaultEncoding+")"),
			parameters.WithDefault(""),
		),
	}
}

func inputArgument() *parameters.ParameterDefinition {
	return parameters.NewParameterDefinition(
		"input",
		parameters.ParameterTypeStringFromFiles,
		parameters.WithHelp("Input files (default: stdin)"),
	)
}

// counter returns the counter for the flags, and the input text with the
// trailing newline of the file removed.
func (ts *TokensSettings) counter() (*tokens.Counter, string, error) {
	codec := ts.Codec
	if ts.Model == "" && codec == "" {
		codec = tokens.DefaultEncoding
	}
	counter, err := tokens.NewCounter(ts.Model, codec)
	if err != nil {
		return nil, "", err
	}

	input := ts.Input
	if input == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", errors.Wrap(err, "reading stdin")
		}
		input = string(b)
	}
	return counter, strings.TrimSuffix(input, "\n"), nil
}

func (ts *TokensSettings) codecName() string {
	switch {
	case ts.Codec != "":
		return ts.Codec
	case ts.Model == "":
		return tokens.DefaultEncoding
	default:
		return "default for " + ts.Model
	}
}

type CountCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*CountCommand)(nil)

func NewCountCommand() (*CountCommand, error) {
	return &CountCommand{
		CommandDescription: cmds.NewCommandDescription(
			"count",
			cmds.WithShort("Count the tokens of the input with a specific model and codec"),
			cmds.WithFlags(tokensFlags()...),
			cmds.WithArguments(inputArgument()),
		),
	}, nil
}

func (c *CountCommand) RunIntoWriter(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	w io.Writer,
) error {
	ts := &TokensSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, ts); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}

	counter, input, err := ts.counter()
	if err != nil {
		return err
	}
	count, err := counter.Count(input)
	if err != nil {
		return errors.Wrap(err, "error encoding input")
	}

	_, err = fmt.Fprintf(w, "Model: %s\nCodec: %s\nTotal tokens: %d\n", ts.Model, ts.codecName(), count)
	return err
}

type EncodeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*EncodeCommand)(nil)

func NewEncodeCommand() (*EncodeCommand, error) {
	return &EncodeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"encode",
			cmds.WithShort("Print the token ids and tokens of the input"),
			cmds.WithFlags(tokensFlags()...),
			cmds.WithArguments(inputArgument()),
		),
	}, nil
}

func (c *EncodeCommand) RunIntoWriter(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	w io.Writer,
) error {
	ts := &TokensSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, ts); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}

	counter, input, err := ts.counter()
	if err != nil {
		return err
	}
	ids, toks, err := counter.Encode(input)
	if err != nil {
		return errors.Wrap(err, "error encoding input")
	}

	for i, id := range ids {
		if _, err := fmt.Fprintf(w, "%d\t%q\n", id, toks[i]); err != nil {
			return err
		}
	}
	return nil
}

type DecodeCommand struct {
	*cmds.CommandDescription
}

var _ cmds.WriterCommand = (*DecodeCommand)(nil)

func NewDecodeCommand() (*DecodeCommand, error) {
	return &DecodeCommand{
		CommandDescription: cmds.NewCommandDescription(
			"decode",
			cmds.WithShort("Turn whitespace separated token ids back into text"),
			cmds.WithFlags(tokensFlags()...),
			cmds.WithArguments(inputArgument()),
		),
	}, nil
}

func (c *DecodeCommand) RunIntoWriter(
	ctx context.Context,
	parsedLayers *layers.ParsedLayers,
	w io.Writer,
) error {
	ts := &TokensSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, ts); err != nil {
		return errors.Wrap(err, "error initializing settings")
	}

	counter, input, err := ts.counter()
	if err != nil {
		return err
	}

	var ids []uint
	for _, field := range strings.Fields(input) {
		id, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "invalid token id %q", field)
		}
		ids = append(ids, uint(id))
	}

	text, err := counter.Decode(ids)
	if err != nil {
		return errors.Wrap(err, "error decoding input")
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

// NewTokensCommand groups count, encode and decode under "tokens".
func NewTokensCommand() (*cobra.Command, error) {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Inspect how prompts are tokenized",
	}

	countCmd, err := NewCountCommand()
	if err != nil {
		return nil, err
	}
	encodeCmd, err := NewEncodeCommand()
	if err != nil {
		return nil, err
	}
	decodeCmd, err := NewDecodeCommand()
	if err != nil {
		return nil, err
	}

	for _, c := range []cmds.WriterCommand{countCmd, encodeCmd, decodeCmd} {
		cobraCmd, err := cli.BuildCobraCommandFromWriterCommand(c)
		if err != nil {
			return nil, err
		}
		tokensCmd.AddCommand(cobraCmd)
	}

	return tokensCmd, nil
}
