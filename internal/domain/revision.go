package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const pdfExt = ".pdf"

// SanitizeWorkerName makes a worker name usable inside an artifact name.
func SanitizeWorkerName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// BaseName is the artifact name stem for (tenant, worker, period).
func BaseName(tenantSlug, workerName, periodLabel string) string {
	return fmt.Sprintf("%s-%s-%s", tenantSlug, SanitizeWorkerName(workerName), periodLabel)
}

// RevisionPrefix is the stem that revisioned names share before the number.
func RevisionPrefix(tenantSlug, workerName, periodLabel string) string {
	return BaseName(tenantSlug, workerName, periodLabel) + "-rev"
}

// BulkName is the non-revisioned name used by the scheduled cycle.
func BulkName(tenantSlug, workerName, periodLabel string) string {
	return BaseName(tenantSlug, workerName, periodLabel) + pdfExt
}

// RevisionedName is the artifact name for revision rev of prefix.
func RevisionedName(prefix string, rev int) string {
	return prefix + strconv.Itoa(rev) + pdfExt
}

// NextRevision returns one more than the highest revision among names that
// match prefix followed by digits and ".pdf", compared case-insensitively.
// Other names are ignored; with no match the result is 1.
func NextRevision(names []string, prefix string) int {
	pattern := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `(\d+)\.pdf$`)

	highest := 0
	for _, name := range names {
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		rev, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if rev > highest {
			highest = rev
		}
	}
	return highest + 1
}
