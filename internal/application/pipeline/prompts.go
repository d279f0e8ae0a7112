package pipeline

import (
	"fmt"
	"strings"

	"storyforge-api/internal/domain/entity"
)

// 提示词模板集中在本文件，与各阶段的控制流分离，便于单独调整措辞

func buildWorldPrompt(w *entity.WorldInputs) string {
	if w == nil {
		w = &entity.WorldInputs{}
	}

	genres := "Not specified"
	if len(w.Genres) > 0 {
		genres = strings.Join(w.Genres, ", ")
	}

	return fmt.Sprintf(`Analyze and synthesize this worldbuilding information into a comprehensive world guide that maintains consistency across all story generation:

WORLD SUMMARY: %s
GENRES: %s
TIME PERIOD: %s
CULTURAL INFLUENCES: %s

WORLD STRUCTURE:
- Geography: %s
- Climate: %s
- Technology: %s
- Magic/Supernatural: %s
- Physics: %s

SOCIETY & CULTURE:
- Governance: %s
- Laws: %s
- Economy: %s
- Cultural Norms: %s
- Religions: %s
- Social Hierarchy: %s

CONFLICT & POWER:
- Major Conflict: %s
- Factions: %s
- Hidden Powers: %s
- Law Enforcement: %s

THEMES & ATMOSPHERE:
- Emotional Vibe: %s
- Symbolic Motifs: %s
- Historical Trauma: %s

Create a detailed world bible that includes:
1. Key world rules and laws
2. Important locations and their descriptions
3. Cultural context for character behavior
4. Thematic elements to weave into the story
5. Potential conflicts and tensions

Format this as a comprehensive guide for story generation.`,
		w.StoryWorldSummary, genres, w.TimePeriodSetting, w.CulturalInfluences,
		w.GeographyEnvironment, w.ClimateWeather, w.TechnologyLevel,
		w.MagicSupernaturalRules, w.PhysicsRules,
		w.GovernancePolitical, w.LawsJustice, w.EconomicSystem,
		w.CulturalNormsTaboos, w.ReligionsBeliefs, w.SocialHierarchies,
		w.MajorConflict, w.FactionBreakdown, w.HiddenPowerStructures, w.LawEnforcementStyle,
		w.EmotionalVibe, w.SymbolicMotifs, w.HistoricalTrauma,
	)
}

func buildCharacterPrompt(worldBible string, c entity.CharacterInput) string {
	return fmt.Sprintf(`Using this world context:
%s

Create a comprehensive character profile for: %s

CHARACTER DATA:
- Archetype: %s
- Backstory: %s
- Internal Conflict: %s
- External Conflict: %s
- Core Belief: %s
- Emotional Triggers: %s
- Coping Mechanism: %s
- Biggest Regret: %s
- Personal Symbol: %s
- Voice/Speech: %s
- What Makes Them Laugh: %s
- What Makes Them Cry: %s
- Relationships: %s
- Secrets: %s

PSYCHOLOGICAL DEPTH:
- Desire vs Need: %s
- Line They Won't Cross: %s
- Fear of Becoming: %s
- Public vs Private: %s

Create a character guide that includes:
1. Detailed personality profile
2. Consistent voice and dialogue style
3. Character motivations and goals
4. How they fit into the world's conflicts
5. Character arc potential
6. Key relationships and dynamics
7. Behavioral patterns and quirks

Make this character feel real and three-dimensional within the established world.`,
		worldBible, c.Name,
		c.Archetype, c.BackstoryOneSentence, c.InternalConflict, c.ExternalConflict,
		c.CoreBelief, c.EmotionalTriggers, c.CopingMechanism, c.BiggestRegret,
		c.PersonalSymbolObject, c.VoiceSpeechPattern, c.WhatMakesLaugh, c.WhatMakesCry,
		c.RelationshipsMap, c.Secrets,
		c.DesireVsNeed, c.LineNeverCross, c.FearsBecoming, c.PublicVsPrivatePersona,
	)
}

func buildPlotPrompt(worldBible string, mainCharacters []string, characterCount, targetChapters int, p *entity.PlotInputs) string {
	field := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "None specified"
		}
		return s
	}
	if p == nil {
		p = &entity.PlotInputs{}
	}

	return fmt.Sprintf(`Create a detailed %d-chapter plot structure using this context:

WORLD CONTEXT:
%s

CHARACTER CONTEXT:
Main Characters: %s
Character Count: %d

PLOT ELEMENTS:
- Foreshadowing Seeds: %s
- Red Herrings: %s
- Chekhov's Guns: %s
- Major Twists: %s
- Thematic Echoes: %s
- Character Crossroads: %s

Create a comprehensive %d-chapter outline that includes:

1. **Three-Act Structure** mapped across %d chapters
2. **Chapter-by-Chapter Breakdown** with:
   - Chapter title suggestions
   - Key events and scenes
   - Character development moments
   - Plot advancement
   - Tension/pacing notes
   - Foreshadowing elements
3. **Character Arc Integration** - how each main character develops through the chapters
4. **Thematic Elements** - how themes are woven throughout
5. **Conflict Escalation** - how tension builds to climax
6. **Sequential Logic** - ensure events flow logically from chapter to chapter

Format as a detailed outline that a story generation agent can follow precisely.`,
		targetChapters, worldBible,
		strings.Join(mainCharacters, ", "), characterCount,
		field(p.ForeshadowingSeeds), field(p.RedHerrings), field(p.ChekhovsGuns),
		field(p.TwistAboutCharacter), field(p.ThematicEchoScenes), field(p.CharacterCrossroadMoments),
		targetChapters, targetChapters,
	)
}

func buildProsePrompt(chapterNum int, sc *StageContext, profilesJSON, previousSummary string, targetWords int) string {
	return fmt.Sprintf(`Write Chapter %d of %d for this story.

WORLD CONTEXT:
%s

CHARACTER PROFILES:
%s

PLOT STRUCTURE:
%s

%s

TARGET WORD COUNT: %d words

Requirements for Chapter %d:
1. Follow the established plot structure for this chapter
2. Maintain character consistency with established profiles
3. Follow world rules and maintain atmosphere
4. Ensure smooth continuation from previous chapters
5. Include rich sensory details, dialogue, and action
6. Advance both plot and character development
7. Write in a compelling, engaging narrative style
8. Target approximately %d words
9. End with appropriate tension or resolution for this point in the story

Format:
- Start with a compelling chapter title
- Write the full chapter content
- Use proper paragraph breaks and dialogue formatting

Write Chapter %d now:`,
		chapterNum, sc.ChapterCount,
		sc.WorldBible, profilesJSON, sc.PlotStructure, previousSummary,
		targetWords, chapterNum, targetWords, chapterNum,
	)
}

func buildCheckerPrompt(chapter *entity.Chapter, previousSummary string, sc *StageContext, profilesJSON string) string {
	return fmt.Sprintf(`SEQUENTIAL CHECKER PROTOCOL - Analyze this chapter for consistency and sequential issues:

CHAPTER TO CHECK:
Title: %s
Content: %s

PREVIOUS CHAPTERS CONTEXT:
%s

WORLD RULES:
%s

CHARACTER PROFILES:
%s

PERFORM THESE CHECKS:

1. **CONTINUITY & CONSISTENCY CHECK:**
- Timeline integrity: Does time progression make sense?
- Character knowledge: Do characters only know what they should know?
- Object/location permanence: Are things where they should be?
- Character injuries/changes: Are physical states consistent?

2. **CHARACTER ARC & MOTIVATION CHECK:**
- Core motivation alignment: Do character actions match established goals?
- Character development: Is emotional progression logical?
- Character voice: Is dialogue consistent with established personality?

3. **PACING & STRUCTURE CHECK:**
- Plot advancement: Does this chapter move the story forward meaningfully?
- Tension and pacing: Is the pacing appropriate for the content?
- Scene balance: Good mix of action and reflection?

4. **WORLD-BUILDING & LORE CHECK:**
- Rule consistency: Are established world rules followed?
- Organic exposition: Is new information introduced naturally?

5. **PROSE & TECHNICAL CHECK:**
- Repetitive language: Any overused words/phrases?
- Clarity and flow: Does it read smoothly?
- Show don't tell: Is it showing rather than telling?

RESPOND WITH:
1. ISSUES_FOUND: List any problems discovered (or "None" if perfect)
2. FIXES_NEEDED: Specific corrections required
3. REVISED_CONTENT: The corrected chapter content (only if fixes needed)

If no issues found, respond with "APPROVED" and the original content.`,
		chapter.Title, chapter.Content,
		previousSummary, sc.WorldBible, profilesJSON,
	)
}
