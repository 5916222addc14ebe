package e2e

import (
	"github.com/cucumber/godog"

	"restapidemo/e2e/steps/common"
	"restapidemo/e2e/steps/users"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register user management steps
	users.RegisterSteps(ctx, tc)
}
