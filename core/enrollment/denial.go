package enrollment

// Action is a link offered on a denial page.
type Action struct {
	Label string
	Href  string
}

// Denial is rendered in place of a page the user may not see. It is an outcome, not an error.
type Denial struct {
	Icon          string
	Title         string
	Description   string
	PrimaryAction Action
}

// Subject names what a Guard protects, for the denial wording.
type Subject int

const (
	SubjectCourse Subject = iota
	SubjectLesson
	SubjectAnnouncement
)

var toDashboard = Action{Label: "Go to dashboard", Href: "/dashboard"}

func NotEnrolledDenial(subj Subject) *Denial {
	d := &Denial{Icon: "🔒", Title: "Access denied", PrimaryAction: toDashboard}
	switch subj {
	case SubjectLesson:
		d.Description = "You need to be enrolled in this course to view this lesson."
	case SubjectAnnouncement:
		d.Description = "You do not have permission to view this announcement."
	default:
		d.Description = "You need to be enrolled in this course. If you purchased it, check the start link you received by email."
	}
	return d
}

func InvalidLinkDenial() *Denial {
	return &Denial{
		Icon:          "🔗",
		Title:         "Invalid link",
		Description:   "This enrollment link is not valid. Please check the link you received by email.",
		PrimaryAction: toDashboard,
	}
}

func InvalidAccessDenial() *Denial {
	return &Denial{
		Icon:          "🔗",
		Title:         "Invalid access",
		Description:   "Please follow a valid enrollment link.",
		PrimaryAction: toDashboard,
	}
}

func CourseMissingDenial() *Denial {
	return &Denial{
		Icon:          "📚",
		Title:         "Course not found",
		Description:   "The requested course does not exist or is not currently offered.",
		PrimaryAction: toDashboard,
	}
}

func CohortMissingDenial() *Denial {
	return &Denial{
		Icon:          "📅",
		Title:         "Cohort not found",
		Description:   "The requested cohort does not exist or is not currently open.",
		PrimaryAction: toDashboard,
	}
}

func DetailsMissingDenial() *Denial {
	return &Denial{
		Icon:          "❌",
		Title:         "Information not found",
		Description:   "The course or cohort information could not be loaded.",
		PrimaryAction: toDashboard,
	}
}

func EnrollmentMissingDenial() *Denial {
	return &Denial{
		Icon:          "❌",
		Title:         "Enrollment not found",
		Description:   "Your enrollment was not completed. Please try again.",
		PrimaryAction: toDashboard,
	}
}

// PageNotFoundDenial is shown for unknown routes and records.
func PageNotFoundDenial() *Denial {
	return &Denial{
		Icon:          "🔍",
		Title:         "Page not found",
		Description:   "The page you are looking for does not exist or has been moved.",
		PrimaryAction: toDashboard,
	}
}
