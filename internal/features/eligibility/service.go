package eligibility

import (
	"context"

	"acadhub/internal/apperr"
	"acadhub/internal/common/models"
	"acadhub/internal/features/user"

	"github.com/d5/tengo/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RuleService interface {
	// CheckEligibility implements the allocator's eligibility gate. With no
	// enabled rule for the cohort, everyone passes.
	CheckEligibility(ctx context.Context, projectType models.ProjectType, year int, studentIDs []primitive.ObjectID) error
	UpsertRule(ctx context.Context, r *Rule) (*Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)
	SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error
}

type RuleServiceImpl struct {
	repo     RuleRepository
	userRepo user.UserRepository
	logger   *zap.Logger
}

func NewRuleService(repo RuleRepository, userRepo user.UserRepository, logger *zap.Logger) RuleService {
	return &RuleServiceImpl{repo: repo, userRepo: userRepo, logger: logger}
}

func (s *RuleServiceImpl) CheckEligibility(ctx context.Context, projectType models.ProjectType, year int, studentIDs []primitive.ObjectID) error {
	rule, err := s.repo.Find(ctx, projectType, year)
	if err != nil {
		return err
	}
	if rule == nil || !rule.Enabled {
		return nil
	}

	students, err := s.userRepo.FindByIDs(ctx, studentIDs)
	if err != nil {
		return err
	}
	if len(students) != len(studentIDs) {
		return apperr.NotFound("one or more students do not exist")
	}

	for i := range students {
		eligible, err := evaluate(ctx, rule.Script, &students[i])
		if err != nil {
			s.logger.Warn("eligibility script failed",
				zap.String("projectType", string(projectType)),
				zap.Int("year", year),
				zap.Error(err))
			if rule.FailOpen {
				continue
			}
			return apperr.Wrap(apperr.KindInternal, err, "eligibility rule failed to evaluate")
		}
		if !eligible {
			return apperr.Validation("student %s does not meet the eligibility criteria", students[i].Name)
		}
	}
	return nil
}

// evaluate runs the rule script against one student's academic record. The
// script must assign a boolean to `eligible`.
func evaluate(ctx context.Context, source string, u *user.User) (bool, error) {
	script := tengo.NewScript([]byte(source))

	_ = script.Add("cgpa", u.CGPA)
	_ = script.Add("backlogs", u.Backlogs)
	_ = script.Add("credits_earned", u.CreditsEarned)
	_ = script.Add("department", u.Department)

	compiled, err := script.RunContext(ctx)
	if err != nil {
		return false, err
	}

	v := compiled.Get("eligible")
	if v == nil {
		return false, apperr.Validation("rule script must assign `eligible`")
	}
	return v.Bool(), nil
}

func (s *RuleServiceImpl) UpsertRule(ctx context.Context, r *Rule) (*Rule, error) {
	if !r.Type.Valid() {
		return nil, apperr.Validation("unknown project type %q", r.Type)
	}
	if r.Year <= 0 {
		return nil, apperr.Validation("year is required")
	}
	if r.Script == "" {
		return nil, apperr.Validation("rule script is required")
	}

	// Compile once up front so a syntax error surfaces to the coordinator
	// instead of at submission time.
	if _, err := tengo.NewScript([]byte(r.Script)).Compile(); err != nil {
		return nil, apperr.Validation("rule script does not compile: %v", err)
	}

	if err := s.repo.Upsert(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RuleServiceImpl) ListRules(ctx context.Context) ([]Rule, error) {
	return s.repo.FindAll(ctx)
}

func (s *RuleServiceImpl) SetEnabled(ctx context.Context, id primitive.ObjectID, enabled bool) error {
	return s.repo.SetEnabled(ctx, id, enabled)
}
