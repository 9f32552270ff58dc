package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chat-gateway/errors"
)

//go:embed censored/*
var censoredFS embed.FS

// CensoredData carries the loaded word list plus metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// LoadDefaultWords parses the embedded per-language dictionaries into a
// unique word list. Each censored/<lang>.txt file holds one word per line.
func LoadDefaultWords() (*CensoredData, error) {
	return loadAll(censoredFS, "censored")
}

func loadAll(fsys embed.FS, path string) (*CensoredData, error) {
	entries, err := fs.ReadDir(fsys, path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		lang := strings.TrimSuffix(entry.Name(), ".txt")
		languages = append(languages, lang)

		data, err := fsys.ReadFile(path + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// A scanner handles both \n and \r\n line endings
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &CensoredData{Words: words, Languages: languages}, nil
}
