// Package alerts evaluates threshold rules against each source's coverage and
// delivers webhook notifications when a rule fires or resolves. Targets are
// Teams, Slack, or a generic HTTP endpoint.
package alerts
