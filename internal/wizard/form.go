package wizard

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/onclick-pay/onclick-web/internal/domain"
)

// stepFields lists the form fields each step owns. Fields outside the posted step are ignored.
var stepFields = map[Step][]string{
	StepBasicInfo: {"name", "handle", "description", "goal", "deadline", "businessType"},
	StepCustomize: {"banner", "avatar", "theme", "layout"},
	StepPayment:   {"walletAddress"},
}

// PatchFromForm builds the merge patch for the fields owned by step. Only fields present in the
// form are patched. Field errors are returned for values that cannot be parsed.
func PatchFromForm(step Step, form url.Values) (domain.Patch, map[string]string) {
	var patch domain.Patch
	var errs map[string]string
	fail := func(field, msg string) {
		if errs == nil {
			errs = make(map[string]string)
		}
		errs[field] = msg
	}
	for _, field := range stepFields[step.Clamp()] {
		values, ok := form[field]
		if !ok || len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[0])
		switch field {
		case "name":
			patch.Name = &value
		case "handle":
			patch.Handle = &value
		case "description":
			patch.Description = &value
		case "businessType":
			patch.BusinessType = &value
		case "banner":
			patch.Banner = &value
		case "avatar":
			patch.Avatar = &value
		case "theme":
			patch.Theme = &value
		case "walletAddress":
			patch.WalletAddress = &value
		case "layout":
			layout := domain.Layout(strings.ToLower(value))
			patch.Layout = &layout
		case "deadline":
			patch.Deadline = &value
		case "goal":
			if value == "" {
				patch.ClearGoal = true
				continue
			}
			goal, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(goal) || math.IsInf(goal, 0) {
				fail("goal", "goal must be a number")
				continue
			}
			if goal < 0 {
				fail("goal", "goal must not be negative")
				continue
			}
			patch.Goal = &goal
		}
	}
	return patch, errs
}

// FormGoal is the goal as shown in the step 1 input.
func FormGoal(d domain.PageDraft) string {
	if d.Goal == nil {
		return ""
	}
	return strconv.FormatFloat(*d.Goal, 'f', -1, 64)
}
