package progress

// Идентификаторы значков каталога по умолчанию.
const (
	BadgeFirstSteps          = "FIRST_STEPS"
	BadgeRiskAnalyst         = "RISK_ANALYST"
	BadgePortfolioBuilder    = "PORTFOLIO_BUILDER"
	BadgeDiversifiedInvestor = "DIVERSIFIED_INVESTOR"
	BadgeKnowledgeSeeker     = "KNOWLEDGE_SEEKER"
	BadgeESGChampion         = "ESG_CHAMPION"
	BadgeScholar             = "SCHOLAR"
	BadgeWeekWarrior         = "WEEK_WARRIOR"
	BadgeMonthlyMaster       = "MONTHLY_MASTER"
	BadgeDedicatedLearner    = "DEDICATED_LEARNER"
	BadgeRisingStar          = "RISING_STAR"
)

// ToolESGScreener - имя инструмента ESG-скринера.
const ToolESGScreener = "esg-screener"

// DefaultBadges возвращает значки каталога по умолчанию.
func DefaultBadges() []Badge {
	return []Badge{
		{BadgeFirstSteps, "First Steps", "Completed your first risk assessment", "🎯", "assessment", RarityCommon, 100},
		{BadgeRiskAnalyst, "Risk Analyst", "Completed five risk assessments", "📊", "assessment", RarityEpic, 300},
		{BadgePortfolioBuilder, "Portfolio Builder", "Created your first portfolio", "💼", "portfolio", RarityCommon, 150},
		{BadgeDiversifiedInvestor, "Diversified Investor", "Created three portfolios", "🧺", "portfolio", RarityEpic, 350},
		{BadgeKnowledgeSeeker, "Knowledge Seeker", "Explored five different tools", "🧭", "exploration", RarityRare, 250},
		{BadgeESGChampion, "ESG Champion", "Screened investments with the ESG screener", "🌱", "sustainability", RarityRare, 200},
		{BadgeScholar, "Scholar", "Completed five education modules", "🎓", "learning", RarityRare, 300},
		{BadgeWeekWarrior, "Week Warrior", "Logged in seven days in a row", "🔥", "streak", RarityRare, 200},
		{BadgeMonthlyMaster, "Monthly Master", "Logged in thirty days in a row", "💪", "streak", RarityEpic, 500},
		{BadgeDedicatedLearner, "Dedicated Learner", "Learned fourteen days in a row", "📚", "streak", RarityEpic, 400},
		{BadgeRisingStar, "Rising Star", "Reached level 10", "⭐", "milestone", RarityLegendary, 1000},
	}
}

// DefaultAchievements возвращает достижения каталога по умолчанию.
func DefaultAchievements() []AchievementDefinition {
	return []AchievementDefinition{
		{"first_assessment", "First Assessment", "Complete a risk assessment", MetricAssessmentsCompleted, 1, Reward{BadgeFirstSteps, 0}},
		{"risk_analyst", "Risk Analyst", "Complete five risk assessments", MetricAssessmentsCompleted, 5, Reward{BadgeRiskAnalyst, 50}},
		{"first_portfolio", "First Portfolio", "Create a portfolio", MetricPortfoliosCreated, 1, Reward{BadgePortfolioBuilder, 0}},
		{"diversified", "Diversified", "Create three portfolios", MetricPortfoliosCreated, 3, Reward{BadgeDiversifiedInvestor, 50}},
		{"tools_explorer", "Tools Explorer", "Use five different tools", MetricToolsUsed, 5, Reward{BadgeKnowledgeSeeker, 0}},
		{"esg_user", "ESG User", "Use the ESG screener", ToolMetric(ToolESGScreener), 1, Reward{BadgeESGChampion, 0}},
		{"scholar", "Scholar", "Complete five education modules", MetricEducationModulesCompleted, 5, Reward{BadgeScholar, 100}},
		{"login_streak_7", "Week Streak", "Log in seven days in a row", MetricLoginStreak, 7, Reward{BadgeWeekWarrior, 0}},
		{"login_streak_30", "Month Streak", "Log in thirty days in a row", MetricLoginStreak, 30, Reward{BadgeMonthlyMaster, 0}},
		{"learning_streak_14", "Learning Streak", "Learn fourteen days in a row", MetricLearningStreak, 14, Reward{BadgeDedicatedLearner, 0}},
		{"level_10", "Level 10", "Reach level 10", MetricLevel, 10, Reward{BadgeRisingStar, 0}},
	}
}

// DefaultCatalog возвращает каталог по умолчанию.
// Паникует, если встроенные данные некорректны.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultLevelTable(), DefaultBadges(), DefaultAchievements())
	if err != nil {
		panic(err)
	}
	return c
}
