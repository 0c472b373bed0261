package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	orgSignups           atomic.Int64
	orgLogins            atomic.Int64
	trialsCreated        atomic.Int64
	volunteersRegistered atomic.Int64
	matchesCreated       atomic.Int64
	matchesApproved      atomic.Int64
	matchesRejected      atomic.Int64
	reportRecleans       atomic.Int64
)

func IncOrgSignups()           { orgSignups.Add(1) }
func IncOrgLogins()            { orgLogins.Add(1) }
func IncTrialsCreated()        { trialsCreated.Add(1) }
func IncVolunteersRegistered() { volunteersRegistered.Add(1) }
func IncMatchesCreated()       { matchesCreated.Add(1) }
func IncMatchesApproved()      { matchesApproved.Add(1) }
func IncMatchesRejected()      { matchesRejected.Add(1) }
func IncReportRecleans()       { reportRecleans.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeCounter(w, "trialmatch_org_signups_total", "Number of organization accounts created.", orgSignups.Load())
	writeCounter(w, "trialmatch_org_logins_total", "Number of successful organization logins.", orgLogins.Load())
	writeCounter(w, "trialmatch_trials_created_total", "Number of trials created and indexed.", trialsCreated.Load())
	writeCounter(w, "trialmatch_volunteers_registered_total", "Number of volunteer intake submissions completed.", volunteersRegistered.Load())
	writeCounter(w, "trialmatch_matches_created_total", "Number of match records created.", matchesCreated.Load())
	writeCounter(w, "trialmatch_matches_approved_total", "Number of matches approved.", matchesApproved.Load())
	writeCounter(w, "trialmatch_matches_rejected_total", "Number of matches rejected.", matchesRejected.Load())
	writeCounter(w, "trialmatch_report_recleans_total", "Number of intake reports recleaned after a flagged critique.", reportRecleans.Load())
}

func writeCounter(w http.ResponseWriter, name, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s counter\n", name)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
