package frontmatter

import (
	"regexp"
	"time"
)

// UTCTime is a timestamp always stored and compared in UTC, matching the
// "UTC instant" vocabulary of the date-validation rules.
type UTCTime struct {
	time.Time
}

// NewUTCTime normalizes t to UTC.
func NewUTCTime(t time.Time) UTCTime {
	return UTCTime{t.UTC()}
}

// DateIssue enumerates why a date field failed validation.
type DateIssue int

const (
	NoIssue DateIssue = iota
	Missing
	InvalidDateFormat
	InvalidWikilinkDate
	FileSystemMismatch
)

func (i DateIssue) String() string {
	switch i {
	case Missing:
		return "Missing"
	case InvalidDateFormat:
		return "InvalidDateFormat"
	case InvalidWikilinkDate:
		return "InvalidWikilink"
	case FileSystemMismatch:
		return "FileSystemMismatch"
	default:
		return ""
	}
}

// DateValidation is the per-field, per-file outcome of checking a
// frontmatter date value against the filesystem.
type DateValidation struct {
	FrontmatterDate     string
	FileSystemDate      UTCTime
	Issue               DateIssue
	OperationalTimezone string
}

const dateLayout = "2006-01-02"

var wikilinkDateRe = regexp.MustCompile(`^\[\[([^\[\]]+)\]\]$`)

// extractWikilinkedDate strips a `[[...]]` wrapper, requiring exactly one
// opening and one closing pair. Returns ok=false if the value isn't
// wrapped that way at all.
func extractWikilinkedDate(raw string) (inner string, ok bool) {
	m := wikilinkDateRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ValidateDateField checks one field's raw frontmatter value against the
// filesystem timestamp fsDate.
func ValidateDateField(raw *string, fsDate UTCTime, tz string) DateValidation {
	v := DateValidation{FileSystemDate: fsDate, OperationalTimezone: tz}
	if raw == nil || *raw == "" {
		v.Issue = Missing
		return v
	}
	v.FrontmatterDate = *raw

	inner, wrapped := extractWikilinkedDate(*raw)
	if !wrapped {
		v.Issue = InvalidWikilinkDate
		return v
	}
	parsed, err := time.Parse(dateLayout, inner)
	if err != nil {
		v.Issue = InvalidDateFormat
		return v
	}

	localDate, err := localizedDate(fsDate, tz)
	if err != nil {
		return v
	}
	if parsed.Format(dateLayout) != localDate {
		v.Issue = FileSystemMismatch
	}
	return v
}

// localizedDate formats instant in the named IANA zone as YYYY-MM-DD.
func localizedDate(instant UTCTime, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(dateLayout), nil
}

// ComputeDateCreatedFix implements the date_created_fix projection: parse
// the operator-supplied override date (wikilink or plain), combine it
// with fsCreated's time-of-day, localize to tz, and re-project to UTC.
func ComputeDateCreatedFix(fixRaw string, fsCreated UTCTime, tz string) (UTCTime, bool) {
	inner := fixRaw
	if wrapped, ok := extractWikilinkedDate(fixRaw); ok {
		inner = wrapped
	}
	day, err := time.Parse(dateLayout, inner)
	if err != nil {
		return UTCTime{}, false
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTCTime{}, false
	}
	localCreated := fsCreated.In(loc)
	combined := time.Date(day.Year(), day.Month(), day.Day(),
		localCreated.Hour(), localCreated.Minute(), localCreated.Second(), localCreated.Nanosecond(), loc)
	return NewUTCTime(combined), true
}

// RepairDates applies the date repair procedure, mutating the document
// in place and returning the persist reasons it produced.
func (d *Document) RepairDates(fsCreated, fsModified UTCTime, tz string) []PersistReason {
	var reasons []PersistReason

	if d.DateCreatedFix != nil && *d.DateCreatedFix != "" {
		if fix, ok := ComputeDateCreatedFix(*d.DateCreatedFix, fsCreated, tz); ok {
			dateStr, err := localizedDate(fix, tz)
			if err == nil {
				d.SetDateCreated("[[" + dateStr + "]]")
				d.RawDateCreated = &fix
				d.RemoveDateCreatedFix()
				r := PersistReason{Kind: DateCreatedFixApplied}
				d.AddReason(r)
				reasons = append(reasons, r)
			}
		}
	} else {
		cv := ValidateDateField(d.DateCreated, fsCreated, tz)
		if cv.Issue != NoIssue {
			dateStr, err := localizedDate(fsCreated, tz)
			if err == nil {
				d.SetDateCreated("[[" + dateStr + "]]")
				d.RawDateCreated = &fsCreated
				r := PersistReason{Kind: DateCreatedUpdated, Detail: cv.Issue.String()}
				d.AddReason(r)
				reasons = append(reasons, r)
			}
		} else if d.RawDateCreated == nil {
			d.RawDateCreated = &fsCreated
		}
	}

	mv := ValidateDateField(d.DateModified, fsModified, tz)
	if mv.Issue != NoIssue {
		dateStr, err := localizedDate(fsModified, tz)
		if err == nil {
			d.SetDateModified("[[" + dateStr + "]]")
			d.RawDateModified = &fsModified
			r := PersistReason{Kind: DateModifiedUpdated, Detail: mv.Issue.String()}
			d.AddReason(r)
			reasons = append(reasons, r)
		}
	} else if d.RawDateModified == nil {
		d.RawDateModified = &fsModified
	}

	return reasons
}

// MarkBackPopulated drops redundant DateModifiedUpdated reasons, stamps
// date_modified to today in tz, and appends BackPopulated.
func (d *Document) MarkBackPopulated(now UTCTime, tz string) error {
	d.RemoveReasonsOfKind(DateModifiedUpdated)
	dateStr, err := localizedDate(now, tz)
	if err != nil {
		return err
	}
	d.SetDateModified("[[" + dateStr + "]]")
	d.RawDateModified = &now
	d.AddReason(PersistReason{Kind: BackPopulated})
	return nil
}

// MarkImageReferenceUpdated stamps date_modified to today in tz and
// appends an ImageReferencesModified persist reason.
func (d *Document) MarkImageReferenceUpdated(now UTCTime, tz string) error {
	dateStr, err := localizedDate(now, tz)
	if err != nil {
		return err
	}
	d.SetDateModified("[[" + dateStr + "]]")
	d.RawDateModified = &now
	d.AddReason(PersistReason{Kind: ImageReferencesModified})
	return nil
}
