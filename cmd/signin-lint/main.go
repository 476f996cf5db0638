package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/goliatone/go-signin/pkg/field"
	"github.com/goliatone/go-signin/pkg/model"
	"github.com/goliatone/go-signin/pkg/signin"
)

type violation struct {
	file     string
	location string
	message  string
}

func main() {
	signinForm := flag.Bool("signin", false, "also require the fields the sign-in page needs")
	flag.Usage = func() {
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-signin] [paths...]\n", filepath.Base(os.Args[0])); err != nil {
			panic(err)
		}
		if _, err := fmt.Fprintf(flag.CommandLine.Output(), "\nLint YAML form specs: field types, names, options and renderability.\n"); err != nil {
			panic(err)
		}
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var violations []violation
	for _, path := range paths {
		violations = append(violations, lintFile(path, *signinForm)...)
	}
	if report(os.Stderr, violations) {
		os.Exit(1)
	}
}

func lintFile(path string, signinForm bool) []violation {
	spec, err := model.LoadFormSpec(path)
	if err != nil {
		return []violation{{file: path, location: "spec", message: err.Error()}}
	}

	var result []violation
	for idx, fs := range spec.Fields {
		location := fmt.Sprintf("fields[%d]", idx)
		if fs.Name != "" {
			location += " " + fs.Name
		}
		f, err := field.New(fs)
		if err != nil {
			result = append(result, violation{file: path, location: location, message: err.Error()})
			continue
		}
		if _, err := f.Render(field.Props{}); err != nil {
			result = append(result, violation{file: path, location: location, message: err.Error()})
		}
		f.Close()
	}

	if signinForm && len(result) == 0 {
		view, err := signin.NewView(signin.NewFlow(nil), signin.WithFormSpec(spec))
		if err != nil {
			result = append(result, violation{file: path, location: "signin", message: err.Error()})
		} else {
			view.Close()
		}
	}
	return result
}

// report prints violations sorted by file and location and reports whether
// there were any.
func report(w io.Writer, violations []violation) bool {
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			if violations[i].location == violations[j].location {
				return violations[i].message < violations[j].message
			}
			return violations[i].location < violations[j].location
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(w, "%s: %s -> %s\n", v.file, v.location, v.message)
	}
	return len(violations) > 0
}
