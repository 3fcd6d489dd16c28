package mocks

import (
	"errors"
	"sync"
)

// ErrNoScriptedAnswer is returned when a prompt has no scripted answer left.
var ErrNoScriptedAnswer = errors.New("no scripted answer")

// PromptAnswer is one scripted answer. A non-nil Err is returned instead of the value.
type PromptAnswer struct {
	Err     error
	Value   string
	Confirm bool
}

// MockPrompter implements prompt.Prompter with scripted answers, consumed in order.
type MockPrompter struct {
	// Answers maps each question or label to its queued answers.
	Answers map[string][]PromptAnswer

	// Asked records every question and label in order.
	Asked []string

	// Sections records announced sections in order.
	Sections []string

	mu sync.Mutex
}

// NewMockPrompter creates a prompter without scripted answers.
func NewMockPrompter() *MockPrompter {
	return &MockPrompter{Answers: make(map[string][]PromptAnswer)}
}

// Script queues answers for a question or label.
func (m *MockPrompter) Script(question string, answers ...PromptAnswer) *MockPrompter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Answers[question] = append(m.Answers[question], answers...)
	return m
}

func (m *MockPrompter) next(question string) (PromptAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Asked = append(m.Asked, question)

	queue := m.Answers[question]
	if len(queue) == 0 {
		return PromptAnswer{}, ErrNoScriptedAnswer
	}
	m.Answers[question] = queue[1:]
	return queue[0], queue[0].Err
}

// Confirm implements prompt.Prompter.
func (m *MockPrompter) Confirm(question string) (bool, error) {
	answer, err := m.next(question)
	return answer.Confirm, err
}

// Input implements prompt.Prompter.
func (m *MockPrompter) Input(label string) (string, error) {
	answer, err := m.next(label)
	return answer.Value, err
}

// Password implements prompt.Prompter.
func (m *MockPrompter) Password(label string) (string, error) {
	answer, err := m.next(label)
	return answer.Value, err
}

// Section implements prompt.Prompter.
func (m *MockPrompter) Section(title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sections = append(m.Sections, title)
}
