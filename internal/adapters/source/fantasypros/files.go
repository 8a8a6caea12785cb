package fantasypros

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/gridcast/internal/domain/model"
)

// Kind classifies a file in the data folder.
type Kind string

// File kinds.
const (
	KindHistorical Kind = "historical"
	KindCurrent    Kind = "current"
	KindECR        Kind = "ecr"
	KindIgnored    Kind = "ignored"
)

var (
	historicalName = regexp.MustCompile(`(?i)^(\d{4})_FantasyPros_Fantasy_Football_Points(_PPR|_HALF)?\.csv$`)
	currentName    = regexp.MustCompile(`(?i)^FantasyPros_Fantasy_Football_Points(_PPR|_HALF)?\.csv$`)
	trailingWeek   = regexp.MustCompile(`(?i)[\s_-](\d+)\.csv$`)
	labelledWeek   = regexp.MustCompile(`(?i)week[\s_]*(\d+)`)
)

// File is a classified data file name.
type File struct {
	Name    string
	Kind    Kind
	Scoring model.ScoringSystem
	Year    int
	Week    int
}

func scoringSuffix(s string) model.ScoringSystem {
	switch strings.ToUpper(s) {
	case "_PPR":
		return model.PPR
	case "_HALF":
		return model.HalfPPR
	default:
		return model.Standard
	}
}

// Classify decides what a file in the data folder holds. Points exports are
// recognized by name; any other CSV that names a week in 1..18 is an ECR
// table. When season is positive, ECR files must also mention that year.
func Classify(name string, season int) File {
	f := File{Name: name, Kind: KindIgnored}
	if !strings.EqualFold(extension(name), ".csv") {
		return f
	}
	if m := historicalName.FindStringSubmatch(name); m != nil {
		year, _ := strconv.Atoi(m[1])
		f.Kind, f.Year, f.Scoring = KindHistorical, year, scoringSuffix(m[2])
		return f
	}
	if m := currentName.FindStringSubmatch(name); m != nil {
		f.Kind, f.Scoring = KindCurrent, scoringSuffix(m[1])
		return f
	}
	if season > 0 && !strings.Contains(name, strconv.Itoa(season)) {
		return f
	}
	week, err := WeekFromFilename(name)
	if err != nil {
		return f
	}
	f.Kind, f.Week = KindECR, week
	return f
}

// WeekFromFilename finds the week a rankings file covers: a trailing number
// ("ecr-7.csv") wins, otherwise a "week 7" label anywhere in the name.
func WeekFromFilename(name string) (int, error) {
	for _, re := range []*regexp.Regexp{trailingWeek, labelledWeek} {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		w, err := strconv.Atoi(m[1])
		if err == nil && w >= 1 && w <= MaxWeek {
			return w, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrNoWeek, name)
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
