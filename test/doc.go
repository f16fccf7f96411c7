// Package test provides integration testing infrastructure for CareMatch.
//
// A Suite runs the real API server on a loopback listener, backed by a
// file-based SQLite database with the change feed installed and a mock clock
// shared by the matching service, the counter queries and the window
// controllers built by the tests.
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    suite := test.NewSuite(t)
//
//	    owner, ownerAPI := suite.Client("Ada")
//	    job := suite.Job(owner.ID, models.JobStatusReady)
//	    _, err := ownerAPI.RestartSearch(suite.Context(), job.ID)
//	}
package test
