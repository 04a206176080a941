package phase

import "fmt"

// canonicalTable is the eight-phase sequence shared by every supported
// therapy model. Weights are relative shares of the session budget.
var canonicalTable = Table{
	{
		Name:     NameInitial,
		Weight:   10,
		Approach: ApproachQuestions,
		Intent: "Establish rapport and create a safe environment. " +
			"Gather preliminary information about the client's emotional baseline, current mood, and general concerns.",
	},
	{
		Name:     NameIntake,
		Weight:   15,
		Approach: ApproachQuestions,
		Intent: "Collect detailed information about the client's presenting issues, history, and context. " +
			"Understand the immediate challenges and triggers affecting the client.",
	},
	{
		Name:     NameExploratoryInquiry,
		Weight:   20,
		Approach: ApproachQuestions,
		Intent: "Facilitate a deeper exploration of the client's thoughts, feelings, and behaviors. " +
			"Identify underlying causes and emotional triggers through reflective questioning.",
	},
	{
		Name:     NameScenarioValidation,
		Weight:   10,
		Approach: ApproachQuestions,
		Intent: "Validate the insights gathered by discussing concrete examples and real-life scenarios. " +
			"Ensure the client's self-assessment aligns with observable patterns.",
	},
	{
		Name:     NameSolutionRetrieval,
		Weight:   15,
		Approach: ApproachStatements,
		Intent: "Introduce and discuss practical strategies and coping mechanisms tailored to the client's needs. " +
			"Collaboratively identify actionable steps and interventions.",
	},
	{
		Name:     NameInterventionFollowUp,
		Weight:   15,
		Approach: ApproachBoth,
		Intent: "Support the client in implementing agreed-upon interventions while monitoring their progress. " +
			"Provide ongoing guidance, feedback, and adjustments as needed.",
	},
	{
		Name:     NameProgressEvaluation,
		Weight:   10,
		Approach: ApproachQuestions,
		Intent: "Assess the effectiveness of interventions by reviewing measurable outcomes and gathering client feedback. " +
			"Determine if therapeutic objectives have been met and plan next steps.",
	},
	{
		Name:     NameTerminationClosure,
		Weight:   5,
		Approach: ApproachStatements,
		Intent: "Summarize insights and progress made throughout the session. " +
			"Offer clear recommendations and relapse prevention strategies for a smooth transition out of active therapy.",
	},
}

// crisisDefinition is the out-of-band safety phase. It carries no weight
// because it is never scheduled.
var crisisDefinition = Definition{
	Name:     NameCrisis,
	Approach: ApproachBoth,
	Intent: "Respond immediately to signs of severe distress or potential danger. " +
		"Provide urgent, empathetic support and direct the client to appropriate crisis intervention resources.",
}

// TableFor returns the phase table for the given therapy model. Every
// supported model currently shares the canonical eight-phase sequence;
// unknown models fall back to the default model's table.
func TableFor(model TherapyModel) Table {
	return canonicalTable
}

// ValidateTables checks every registered phase table. It is called once at
// service startup so configuration mistakes surface before any session is
// scheduled against them.
func ValidateTables() error {
	for _, model := range Models() {
		if err := TableFor(model).Validate(); err != nil {
			return fmt.Errorf("phase table for %s: %w", model, err)
		}
	}
	return nil
}
