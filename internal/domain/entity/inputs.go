// Package entity 定义领域实体
package entity

// WorldInputs 世界观构建输入
// 字段对应世界观提示词消费的结构化表单
type WorldInputs struct {
	StoryWorldSummary      string   `json:"story_world_summary,omitempty"`
	Genres                 []string `json:"genres,omitempty"`
	TimePeriodSetting      string   `json:"time_period_setting,omitempty"`
	CulturalInfluences     string   `json:"cultural_influences,omitempty"`
	GeographyEnvironment   string   `json:"geography_environment,omitempty"`
	ClimateWeather         string   `json:"climate_weather,omitempty"`
	TechnologyLevel        string   `json:"technology_level,omitempty"`
	MagicSupernaturalRules string   `json:"magic_supernatural_rules,omitempty"`
	PhysicsRules           string   `json:"physics_rules,omitempty"`
	GovernancePolitical    string   `json:"governance_political,omitempty"`
	LawsJustice            string   `json:"laws_justice,omitempty"`
	EconomicSystem         string   `json:"economic_system,omitempty"`
	CulturalNormsTaboos    string   `json:"cultural_norms_taboos,omitempty"`
	ReligionsBeliefs       string   `json:"religions_beliefs,omitempty"`
	SocialHierarchies      string   `json:"social_hierarchies,omitempty"`
	MajorConflict          string   `json:"major_conflict,omitempty"`
	FactionBreakdown       string   `json:"faction_breakdown,omitempty"`
	HiddenPowerStructures  string   `json:"hidden_power_structures,omitempty"`
	LawEnforcementStyle    string   `json:"law_enforcement_style,omitempty"`
	EmotionalVibe          string   `json:"emotional_vibe,omitempty"`
	SymbolicMotifs         string   `json:"symbolic_motifs,omitempty"`
	HistoricalTrauma       string   `json:"historical_trauma,omitempty"`
}

// CharacterInput 角色构建输入
type CharacterInput struct {
	Name                   string `json:"name"`
	Archetype              string `json:"archetype,omitempty"`
	BackstoryOneSentence   string `json:"backstory_one_sentence,omitempty"`
	InternalConflict       string `json:"internal_conflict,omitempty"`
	ExternalConflict       string `json:"external_conflict,omitempty"`
	CoreBelief             string `json:"core_belief,omitempty"`
	EmotionalTriggers      string `json:"emotional_triggers,omitempty"`
	CopingMechanism        string `json:"coping_mechanism,omitempty"`
	BiggestRegret          string `json:"biggest_regret,omitempty"`
	PersonalSymbolObject   string `json:"personal_symbol_object,omitempty"`
	VoiceSpeechPattern     string `json:"voice_speech_pattern,omitempty"`
	WhatMakesLaugh         string `json:"what_makes_laugh,omitempty"`
	WhatMakesCry           string `json:"what_makes_cry,omitempty"`
	RelationshipsMap       string `json:"relationships_map,omitempty"`
	Secrets                string `json:"secrets,omitempty"`
	DesireVsNeed           string `json:"desire_vs_need,omitempty"`
	LineNeverCross         string `json:"line_never_cross,omitempty"`
	FearsBecoming          string `json:"fears_becoming,omitempty"`
	PublicVsPrivatePersona string `json:"public_vs_private_persona,omitempty"`
	PlotRoleTag            string `json:"plot_role_tag,omitempty"`
}

// PlotInputs 情节结构输入
type PlotInputs struct {
	ForeshadowingSeeds        string `json:"foreshadowing_seeds,omitempty"`
	RedHerrings               string `json:"red_herrings,omitempty"`
	ChekhovsGuns              string `json:"chekhovs_guns,omitempty"`
	TwistAboutCharacter       string `json:"twist_about_character,omitempty"`
	ThematicEchoScenes        string `json:"thematic_echo_scenes,omitempty"`
	CharacterCrossroadMoments string `json:"character_crossroad_moments,omitempty"`
}
