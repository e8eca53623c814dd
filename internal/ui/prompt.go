package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// Input displays a text input prompt
func Input(message, defaultValue, help string) (string, error) {
	var result string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
		Help:    help,
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// Password displays a password input prompt
func Password(message, help string) (string, error) {
	var result string
	prompt := &survey.Password{
		Message: message,
		Help:    help,
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// Select displays a selection prompt
func Select(message string, options []string, defaultValue string) (string, error) {
	var result string
	prompt := &survey.Select{
		Message:  message,
		Options:  options,
		PageSize: 10,
	}
	if defaultValue != "" {
		prompt.Default = defaultValue
	}

	err := survey.AskOne(prompt, &result)
	return result, err
}

// Confirm shows a yes/no prompt
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := survey.AskOne(&survey.Confirm{Message: message, Default: defaultValue}, &result)
	return result, err
}

// Prompter asks the questions of interactive commands.
type Prompter interface {
	Input(message, defaultValue, help string) (string, error)
	Password(message, help string) (string, error)
	Select(message string, options []string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
}

// SurveyPrompter prompts on the terminal.
type SurveyPrompter struct{}

func (SurveyPrompter) Input(message, defaultValue, help string) (string, error) {
	return Input(message, defaultValue, help)
}

func (SurveyPrompter) Password(message, help string) (string, error) {
	return Password(message, help)
}

func (SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	return Select(message, options, defaultValue)
}

func (SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	return Confirm(message, defaultValue)
}
