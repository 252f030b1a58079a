package availability

// Page elements of the schedule builder.
const (
	selWelcomeContinue    = "#welcomeTermsContinue"
	selDisclaimerContinue = "#disclaimerContinue"

	// selTermPrefix is followed by the term code
	selTermPrefix = "#term_"

	selCourseSearch = "#code_number"
	selSearchSubmit = "#addCourseButton"

	// the first result row of the selected course and its seat cell
	selCourseRow  = "#requirements .course_box .selection_row:nth-child(3)"
	selSeatStatus = "#requirements .course_box .selection_row:nth-child(3) .seatText"
)
