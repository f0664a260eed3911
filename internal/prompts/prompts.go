// Package prompts holds the prompt and email templates used by the pipeline
// stages. Each embedded JSON file maps a key to a text/template body whose
// placeholders look like {{.Key}}.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"
	"text/template/parse"
)

// Template files.
const (
	StagesFile   = "stages.json"
	OutreachFile = "outreach.json"
)

//go:embed *.json
var files embed.FS

// library maps "file/key" to its parsed template.
type library map[string]*template.Template

var load = sync.OnceValues(func() (library, error) {
	return parseLibrary(files)
})

func parseLibrary(fsys fs.FS) (library, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}

	lib := library{}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var bodies map[string]string
		if err := json.Unmarshal(data, &bodies); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		for key, body := range bodies {
			id := name + "/" + key
			tmpl, err := template.New(id).Option("missingkey=error").Parse(body)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", id, err)
			}
			lib[id] = tmpl
		}
	}
	return lib, nil
}

// Render fills the template stored under key in file. Every placeholder must
// have a value in data.
func Render(file, key string, data map[string]string) (string, error) {
	lib, err := load()
	if err != nil {
		return "", err
	}
	tmpl, ok := lib[file+"/"+key]
	if !ok {
		return "", fmt.Errorf("prompt %s/%s not found", file, key)
	}

	if data == nil {
		data = map[string]string{}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s/%s: %w", file, key, err)
	}
	return buf.String(), nil
}

// Keys lists the template keys in file, sorted.
func Keys(file string) ([]string, error) {
	lib, err := load()
	if err != nil {
		return nil, err
	}
	prefix := file + "/"
	var keys []string
	for id := range lib {
		if key, ok := strings.CutPrefix(id, prefix); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("prompt file %s not found", file)
	}
	sort.Strings(keys)
	return keys, nil
}

// Placeholders returns the field names a template refers to, in first-use order.
func Placeholders(file, key string) ([]string, error) {
	lib, err := load()
	if err != nil {
		return nil, err
	}
	tmpl, ok := lib[file+"/"+key]
	if !ok {
		return nil, fmt.Errorf("prompt %s/%s not found", file, key)
	}

	var names []string
	seen := map[string]bool{}
	for _, node := range tmpl.Tree.Root.Nodes {
		action, ok := node.(*parse.ActionNode)
		if !ok {
			continue
		}
		for _, cmd := range action.Pipe.Cmds {
			for _, arg := range cmd.Args {
				if field, ok := arg.(*parse.FieldNode); ok && len(field.Ident) > 0 && !seen[field.Ident[0]] {
					seen[field.Ident[0]] = true
					names = append(names, field.Ident[0])
				}
			}
		}
	}
	return names, nil
}
