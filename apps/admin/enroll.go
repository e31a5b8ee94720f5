package main

import (
	"context"
	"fmt"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/enrollment"
)

// enroll sets the status of a user's enrollment in an active cohort, creating it if needed.
func (cli *commandLine) enroll(ctx context.Context, email, courseSlug, cohortRef string, status enrollment.Status) error {
	usr, err := cli.usrRepo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	crs, err := cli.courses.GetPublishedCourse(ctx, courseSlug)
	if err != nil {
		return err
	}
	cht, err := cli.courses.GetActiveCohort(ctx, crs.ID, course.ParseCohortRef(cohortRef))
	if err != nil {
		return err
	}
	e, err := cli.enrollments.SetStatus(ctx, usr.ID, cht.ID, status)
	if err != nil {
		return err
	}
	fmt.Printf("%s is %s in %s (%s)\n", usr.Email, e.Status, crs.Title, cht.Title)
	return nil
}
