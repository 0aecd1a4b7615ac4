package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

const (
	demoMemberID   = "demo-member"
	demoInstructor = "mwalimu"
)

func (cli *commandLine) seedData() error {
	crs, vids, err := cli.loadDemoData(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("created course %q (%s) with %d videos; purchased by member %q\n", crs.Name, crs.ID, len(vids), demoMemberID)
	return nil
}

// loadDemoData creates a demo course with a few videos and a purchase for
// the demo member.
func (cli *commandLine) loadDemoData(ctx context.Context) (course.Course, []course.Video, error) {
	crs, err := cli.courseRepo.CreateCourse(ctx, course.Course{
		Name:            "Getting Started with Go",
		CreatorUsername: demoInstructor,
	})
	if err != nil {
		return course.Course{}, nil, errors.Wrap(err, "creating demo course")
	}

	seeds := []course.Video{
		{CourseID: crs.ID, ExternalID: "y7lvz-x1xa0", Title: "Introduction", URL: "https://youtu.be/y7lvz-x1xa0"},
		{CourseID: crs.ID, ExternalID: "8uiZC0l4Ajw", Title: "Packages and Modules", URL: "https://youtu.be/8uiZC0l4Ajw"},
		{CourseID: crs.ID, ExternalID: "YS4e4q9oBaU", Title: "Concurrency Basics", URL: "https://youtu.be/YS4e4q9oBaU"},
	}
	vids := make([]course.Video, 0, len(seeds))
	for _, seed := range seeds {
		vid, err := cli.courseRepo.CreateVideo(ctx, seed)
		if err != nil {
			return course.Course{}, nil, errors.Wrap(err, "creating demo video")
		}
		vids = append(vids, vid)
	}

	if err = cli.courseRepo.SetPurchase(ctx, demoMemberID, crs.ID, true); err != nil {
		return course.Course{}, nil, errors.Wrap(err, "creating demo purchase")
	}
	return crs, vids, nil
}
