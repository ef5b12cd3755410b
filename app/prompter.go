package app

import (
	"errors"
	"sync"
)

var errNoAnswer = errors.New("no answer given")

// answerPrompter hands the instance the answer the UI collected just
// before the prompting key was forwarded.
type answerPrompter struct {
	mu     sync.Mutex
	answer string
}

func (p *answerPrompter) set(answer string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = answer
}

func (p *answerPrompter) Prompt(label string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.answer == "" {
		return "", errNoAnswer
	}
	return p.answer, nil
}
