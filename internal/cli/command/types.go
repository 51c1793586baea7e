package command

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt64
	FieldStringList
	FieldIntList
	FieldBool
	// FieldFile takes its value inline or from the file named by <name>_file.
	FieldFile
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	Required bool
}

// Handler executes a command against the environment.
type Handler func(ctx context.Context, env *Env, params Params) (interface{}, error)

// Command defines a CLI command binding.
type Command struct {
	Service      string
	Action       string
	Summary      string
	RequiresAuth bool
	Fields       []Field
	Run          Handler
}

// Key is the registry key, "service action".
func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// Provided reports whether field has a value, counting <name>_file for
// file fields.
func (p Params) Provided(field Field) bool {
	if p.Get(field.Name) != "" {
		return true
	}
	return field.Type == FieldFile && p.Get(field.Name+"_file") != ""
}

// File resolves a FieldFile value; the file wins over the inline value.
func (p Params) File(name string) (string, error) {
	if path := p.Get(name + "_file"); path != "" {
		return ReadFile(path)
	}
	return p.Get(name), nil
}

func ParseInt64(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

// ParseBool accepts the strconv forms plus yes/no; empty is false.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return false, nil
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(value))
}

func ParseStringList(value string) []string {
	raw := strings.Split(value, ",")
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

func ParseIntList(value string) ([]int, error) {
	items := ParseStringList(value)
	result := make([]int, 0, len(items))
	for _, item := range items {
		n, err := ParseInt(item)
		if err != nil {
			return nil, fmt.Errorf("invalid int list value: %w", err)
		}
		result = append(result, n)
	}
	return result, nil
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
