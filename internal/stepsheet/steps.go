package stepsheet

import (
	"regexp"
	"strings"
)

var (
	sectionHeader = regexp.MustCompile(`(?i)^(S\d+|Section\s*\d+|\[\s*\d+\s*[-–]\s*\d+\s*\]|Tag\s*\d*|Restart\s*\d*|Ending|Bridge|Intro)(\s*[:.\-–]\s*|\s+|$)`)
	countedStep   = regexp.MustCompile(`^(\d+(?:(?:\s*[-–,&]+\s*|\s+)\d+)*\s*&?)\s*[.:)]?\s+(.+)$`)
)

// ParseSteps reads the step description text into count-led steps.
// Header lines such as "S1:", "Section 2", "[9-16]", "TAG" or "ENDING"
// set the section of the steps that follow; other lines are ignored.
func ParseSteps(text string) []Step {
	steps := []Step{}
	section := ""

	for _, line := range strings.Split(text, "\n") {
		line = cleanText(line)
		if line == "" {
			continue
		}

		if sectionHeader.MatchString(line) {
			section = line
			continue
		}

		if m := countedStep.FindStringSubmatch(line); m != nil {
			steps = append(steps, Step{
				Section:     section,
				Number:      strings.Join(strings.Fields(m[1]), " "),
				Description: strings.TrimSpace(m[2]),
			})
		}
	}
	return steps
}
