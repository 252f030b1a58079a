package portal

import "fmt"

// Page elements of the registration portal.
const (
	selUsername    = "#mcg_un"
	selPassword    = "#mcg_pw"
	selLoginButton = "#mcg_un_submit"

	// selBreakIn is the banner shown when the session was taken over or expired
	selBreakIn = "body > div.pagebodydiv > table:nth-child(3) > tbody > tr > td:nth-child(2) > span"

	selStudentMenu      = "body > div.pagebodydiv > table.menuplaintable > tbody > tr:nth-child(2) > td:nth-child(2) > a"
	selRegistrationMenu = "body > div.pagebodydiv > table.menuplaintable > tbody > tr:nth-child(3) > td:nth-child(2) > a"
	selQuickAdd         = "body > div.pagebodydiv > table.menuplaintable > tbody > tr:nth-child(3) > td:nth-child(2) > a"

	selSelectTerm = "#term_id"
	selSubmitTerm = "body > div.pagebodydiv > form > input[type=submit]"

	selCourseID = "#crn_id1"

	// the portal moves its submit control between form positions
	selSubmitPrefix = "body > div.pagebodydiv > form > input[type=submit]:nth-child"

	selRegistrationErrors = "body > div.pagebodydiv > form > table.datadisplaytable"
	selRegistrationLimit  = "body > div.pagebodydiv > div.infotextdiv > table > tbody > tr > td:nth-child(2) > span"
)

// submitCandidates lists the n positions the submit control may occupy.
func submitCandidates(n int) []string {
	candidates := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		candidates = append(candidates, fmt.Sprintf("%s(%d)", selSubmitPrefix, i))
	}
	return candidates
}
