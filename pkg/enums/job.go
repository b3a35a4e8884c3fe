package enums

// JobStatus maps to the job_status enum in Postgres.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// String implements fmt.Stringer.
func (j JobStatus) String() string {
	return string(j)
}

// Terminal reports whether the job has reached a final state.
func (j JobStatus) Terminal() bool {
	return j == JobStatusSucceeded || j == JobStatusFailed
}

// Job names understood by the worker. Handlers register under these names.
const (
	JobPriceListImport = "price_list.import"
	JobPriceListExport = "price_list.export"
	JobOrderNotify     = "order.notify"
)
