// Package e2e holds smoke tests that run against a live certd:
//
//	CERTD_E2E_URL=http://localhost:5000 go test -tags e2e ./hack/e2e
package e2e
