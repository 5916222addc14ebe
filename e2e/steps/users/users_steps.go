package users

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(method, path string, body any) error
	StatusCode() int
	ResponseObject() (map[string]any, error)
	ResponseArray() ([]map[string]any, error)
	Remember(alias, id string)
	Recall(alias string) (string, error)
}

// RegisterSteps registers user management step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &userSteps{tc: tc}

	ctx.Step(`^a user "([^"]*)" exists$`, steps.userExists)
	ctx.Step(`^I create a user with:$`, steps.createUserWith)
	ctx.Step(`^I fetch user "([^"]*)"$`, steps.fetchUser)
	ctx.Step(`^I update user "([^"]*)" with:$`, steps.updateUserWith)
	ctx.Step(`^I delete user "([^"]*)"$`, steps.deleteUser)
	ctx.Step(`^I list users$`, steps.listUsers)

	ctx.Step(`^the user list should contain (\d+) users?$`, steps.listShouldContain)
	ctx.Step(`^the user list should include "([^"]*)"$`, steps.listShouldInclude)
}

type userSteps struct {
	tc TestContext
}

func defaultPayload(username string) map[string]string {
	return map[string]string{
		"username":    username,
		"firstName":   "Test",
		"lastName":    "User",
		"email":       username + "@example.com",
		"phoneNumber": "5551234567",
	}
}

// tableFields reads a two-column field/value table, skipping the header row.
func tableFields(table *godog.Table) (map[string]string, error) {
	fields := map[string]string{}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return nil, fmt.Errorf("expected field | value rows, got %d cells", len(row.Cells))
		}
		field, value := row.Cells[0].Value, row.Cells[1].Value
		if field == "field" {
			continue
		}
		fields[field] = value
	}
	return fields, nil
}

// payloadFor fills in valid defaults around the fields given in table.
func payloadFor(username string, table *godog.Table) (map[string]string, error) {
	fields, err := tableFields(table)
	if err != nil {
		return nil, err
	}
	if u, ok := fields["username"]; ok {
		username = u
	}
	payload := defaultPayload(username)
	for k, v := range fields {
		payload[k] = v
	}
	return payload, nil
}

func (s *userSteps) userExists(ctx context.Context, username string) error {
	if err := s.tc.Do(http.MethodPost, "/users", defaultPayload(username)); err != nil {
		return err
	}
	if s.tc.StatusCode() != http.StatusCreated {
		return fmt.Errorf("creating %q returned %d", username, s.tc.StatusCode())
	}
	return s.rememberCreated(username)
}

func (s *userSteps) createUserWith(ctx context.Context, table *godog.Table) error {
	payload, err := payloadFor("", table)
	if err != nil {
		return err
	}
	if err := s.tc.Do(http.MethodPost, "/users", payload); err != nil {
		return err
	}
	if s.tc.StatusCode() == http.StatusCreated {
		return s.rememberCreated(payload["username"])
	}
	return nil
}

func (s *userSteps) fetchUser(ctx context.Context, alias string) error {
	path, err := s.userPath(alias)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodGet, path, nil)
}

func (s *userSteps) updateUserWith(ctx context.Context, alias string, table *godog.Table) error {
	path, err := s.userPath(alias)
	if err != nil {
		return err
	}
	payload, err := payloadFor(alias, table)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPut, path, payload)
}

func (s *userSteps) deleteUser(ctx context.Context, alias string) error {
	path, err := s.userPath(alias)
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodDelete, path, nil)
}

func (s *userSteps) listUsers(ctx context.Context) error {
	return s.tc.Do(http.MethodGet, "/users", nil)
}

func (s *userSteps) listShouldContain(ctx context.Context, n int) error {
	list, err := s.tc.ResponseArray()
	if err != nil {
		return err
	}
	if len(list) != n {
		return fmt.Errorf("expected %d users, got %d", n, len(list))
	}
	return nil
}

func (s *userSteps) listShouldInclude(ctx context.Context, csv string) error {
	list, err := s.tc.ResponseArray()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(list))
	for _, u := range list {
		seen[fmt.Sprint(u["username"])] = true
	}
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); !seen[name] {
			return fmt.Errorf("user %q missing from list", name)
		}
	}
	return nil
}

func (s *userSteps) rememberCreated(alias string) error {
	obj, err := s.tc.ResponseObject()
	if err != nil {
		return err
	}
	id, ok := obj["id"].(string)
	if !ok || id == "" {
		return fmt.Errorf("created user has no id")
	}
	s.tc.Remember(alias, id)
	return nil
}

func (s *userSteps) userPath(alias string) (string, error) {
	id, err := s.tc.Recall(alias)
	if err != nil {
		return "", err
	}
	return "/users/" + id, nil
}
