package planner

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/adi64/hyrise/utils"
)

// WorkloadQuery is one statement of a workload file together with its
// execution frequency.
type WorkloadQuery struct {
	SQL       string
	Frequency uint64
}

var freqPattern = regexp.MustCompile(`/\*\s*freq:\s*(\d+)\s*\*/`)

// LoadWorkload reads a workload file (or a directory of *.sql files) and
// returns its statements. A statement may carry a `/* freq: N */` comment;
// without one the frequency is 1.
func LoadWorkload(path string) ([]WorkloadQuery, error) {
	exist, isDir := utils.FileExists(path)
	var sqls []string
	var err error
	if exist && isDir {
		sqls, _, err = utils.ParseRawSQLsFromDir(path)
	} else {
		sqls, err = utils.ParseRawSQLsFromFile(path)
	}
	if err != nil {
		return nil, err
	}

	queries := make([]WorkloadQuery, 0, len(sqls))
	for _, sql := range sqls {
		freq := uint64(1)
		if m := freqPattern.FindStringSubmatch(sql); m != nil {
			if n, err := strconv.ParseUint(m[1], 10, 64); err == nil && n > 0 {
				freq = n
			}
			sql = strings.TrimSpace(freqPattern.ReplaceAllString(sql, ""))
		}
		if sql == "" {
			continue
		}
		queries = append(queries, WorkloadQuery{SQL: sql, Frequency: freq})
	}
	return queries, nil
}
