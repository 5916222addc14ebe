package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	DoRaw(method, path, body string) error
	StatusCode() int
	ResponseObject() (map[string]any, error)
}

// RegisterSteps registers generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I send a (GET|DELETE) request to "([^"]*)"$`, steps.sendRequest)
	ctx.Step(`^I (POST|PUT) to "([^"]*)" with body:$`, steps.sendRawBody)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.fieldShouldEqual)
	ctx.Step(`^the response should have field "([^"]*)"$`, steps.fieldShouldExist)
	ctx.Step(`^the error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the field error for "([^"]*)" should be "([^"]*)"$`, steps.fieldErrorShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) sendRequest(ctx context.Context, method, path string) error {
	return s.tc.Do(method, path, nil)
}

func (s *commonSteps) sendRawBody(ctx context.Context, method, path string, body *godog.DocString) error {
	return s.tc.DoRaw(method, path, body.Content)
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.StatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldEqual(ctx context.Context, field, expected string) error {
	obj, err := s.tc.ResponseObject()
	if err != nil {
		return err
	}
	got, ok := obj[field]
	if !ok {
		return fmt.Errorf("response has no field %q", field)
	}
	if fmt.Sprint(got) != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, fmt.Sprint(got))
	}
	return nil
}

func (s *commonSteps) fieldShouldExist(ctx context.Context, field string) error {
	obj, err := s.tc.ResponseObject()
	if err != nil {
		return err
	}
	if v, ok := obj[field]; !ok || strings.TrimSpace(fmt.Sprint(v)) == "" {
		return fmt.Errorf("response field %q is missing or empty", field)
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	return s.fieldShouldEqual(ctx, "error", code)
}

func (s *commonSteps) fieldErrorShouldBe(ctx context.Context, field, expected string) error {
	obj, err := s.tc.ResponseObject()
	if err != nil {
		return err
	}
	fields, ok := obj["fields"].(map[string]any)
	if !ok {
		return fmt.Errorf("response has no field errors")
	}
	if got := fmt.Sprint(fields[field]); got != expected {
		return fmt.Errorf("expected field error %q for %s, got %q", expected, field, got)
	}
	return nil
}
