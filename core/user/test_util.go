package user

import (
	"github.com/trezcool/campus/core"
)

// NewServiceMock returns a Service signing reset tokens with the test configuration.
func NewServiceMock(repo Repository, mailSvc core.EmailService) Service {
	return NewService(repo, mailSvc, core.NewTestConfig())
}
