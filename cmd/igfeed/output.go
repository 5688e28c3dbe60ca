package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type encodeFunc func(w io.Writer, v interface{}) error

func outputEncoder(format string) (encodeFunc, error) {
	switch strings.ToLower(format) {
	case formatJSON, "":
		return encodeJSON, nil
	case formatYAML, "yml":
		return encodeYAML, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want json or yaml)", format)
	}
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeResult encodes v to the command's stdout in the selected format
func writeResult(cmd *cobra.Command, v interface{}) error {
	encode, err := outputEncoder(outputFormat)
	if err != nil {
		return err
	}
	return encode(cmd.OutOrStdout(), v)
}
