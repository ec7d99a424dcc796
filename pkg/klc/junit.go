package klc

import (
	"encoding/xml"
	"io"
	"strings"
)

type junitFailure struct {
	XMLName xml.Name `xml:"failure"`
	Message string   `xml:"message,attr"`
	Type    string   `xml:"type,attr"`
	Body    string   `xml:",chardata"`
}

type junitCase struct {
	XMLName   xml.Name `xml:"testcase"`
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Failures  []junitFailure
}

type junitSuite struct {
	XMLName  xml.Name `xml:"testsuite"`
	Name     string   `xml:"name,attr"`
	Tests    int      `xml:"tests,attr"`
	Failures int      `xml:"failures,attr"`
	Cases    []junitCase
}

type junitSuites struct {
	XMLName xml.Name `xml:"testsuites"`
	Suites  []junitSuite
}

func junitBody(r *Result, sev Severity) string {
	var b strings.Builder
	b.WriteString("Violating " + r.Rule + " - " + RuleURL(r.Rule))
	for _, entry := range r.Entries {
		if entry.Severity != sev {
			continue
		}
		b.WriteString("\n" + entry.Message)
		for _, extra := range entry.Extras {
			b.WriteString("\n  " + extra)
		}
	}
	return b.String()
}

func junitCases(e *EntityResult) []junitCase {
	var errorFailures, warningFailures []junitFailure
	seen := map[string]bool{}
	for _, r := range e.Results {
		for _, sev := range []Severity{SeverityError, SeverityWarning} {
			body := junitBody(r, sev)
			key := sev.String() + "\x00" + body
			count := 0
			for _, entry := range r.Entries {
				if entry.Severity == sev {
					count++
				}
			}
			if count == 0 || seen[key] {
				continue
			}
			seen[key] = true
			failure := junitFailure{
				Message: r.Rule + ": " + r.Description,
				Type:    sev.String(),
				Body:    body,
			}
			if sev == SeverityError {
				errorFailures = append(errorFailures, failure)
			} else {
				warningFailures = append(warningFailures, failure)
			}
		}
	}

	// A clean entity still gets a passing testcase so the suite's test
	// count reflects everything that was checked.
	if len(errorFailures) == 0 && len(warningFailures) == 0 {
		return []junitCase{{Name: e.Name, ClassName: e.Library}}
	}
	var cases []junitCase
	if len(errorFailures) > 0 {
		cases = append(cases, junitCase{
			Name:      e.Name + " - Errors",
			ClassName: e.Library,
			Failures:  errorFailures,
		})
	}
	if len(warningFailures) > 0 {
		cases = append(cases, junitCase{
			Name:      e.Name + " - Warnings",
			ClassName: e.Library,
			Failures:  warningFailures,
		})
	}
	return cases
}

// WriteJUnit renders the reports as a JUnit XML document for CI
// consumption.
func WriteJUnit(w io.Writer, reports []*Report) error {
	doc := junitSuites{}
	for _, r := range reports {
		suite := junitSuite{Name: r.Library}
		if r.Failure != nil {
			suite.Cases = append(suite.Cases, junitCase{
				Name:      r.Filename,
				ClassName: r.Library,
				Failures: []junitFailure{{
					Message: "could not check file",
					Type:    SeverityError.String(),
					Body:    r.Failure.Error(),
				}},
			})
		}
		for _, e := range r.Entities {
			suite.Cases = append(suite.Cases, junitCases(e)...)
		}
		suite.Tests = len(suite.Cases)
		for _, c := range suite.Cases {
			if len(c.Failures) > 0 {
				suite.Failures++
			}
		}
		doc.Suites = append(doc.Suites, suite)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
