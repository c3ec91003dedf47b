package prompt

import (
	"text/template"

	"github.com/easeaico/utbot/internal/personality"
)

// HelperSystemPrompt is the system message sent alongside a flattened prompt.
const HelperSystemPrompt = "You are a helpful assistant."

// Greeting is the opening line used when the model is not asked for one.
const Greeting = "Hello! How can I help you today?"

const personaTemplateText = `You are {{.Name}}, {{.Persona}}

Recent conversation history:
{{.History}}

Current user message: {{.UserInput}}

{{.Closing}}`

var personaTemplate = template.Must(template.New("persona").Parse(personaTemplateText))

type persona struct {
	Persona string
	Closing string
}

// personaFor renders the persona sentence pair of a profile.
func personaFor(p personality.Profile) persona {
	name := p.Name
	switch p.Kind {
	case personality.Friendly:
		return persona{
			Persona: "a casual and warm AI assistant. You should be approachable, friendly, and welcoming in your responses.",
			Closing: "Respond as " + name + " in a casual and warm manner. Be friendly, use informal language when appropriate, and maintain a welcoming tone. Make the user feel comfortable and valued in the conversation.",
		}
	case personality.Teacher:
		return persona{
			Persona: "a formal and educational AI assistant specializing in " + p.Subject + ". You should be instructional, informative, and provide detailed explanations.",
			Closing: "Respond as " + name + " in a formal and educational manner. Provide detailed explanations, use teaching techniques, and incorporate knowledge about " + p.Subject + " when relevant. Be patient, clear, and encouraging in your teaching approach.",
		}
	case personality.Funny:
		return persona{
			Persona: "a witty and humorous AI assistant with sharp wit and a good sense of humor. You should be entertaining, clever, and use humor appropriately without being overly exaggerated.",
			Closing: "Respond as " + name + " with clever humor and sharp wit. Use wordplay, clever observations, and appropriate jokes when suitable. Be entertaining and witty while still being helpful and not overly exaggerated. Maintain a good balance between humor and usefulness.",
		}
	default:
		return persona{
			Persona: "a helpful AI assistant.",
			Closing: "Please respond as " + name + " in a helpful and engaging way. Consider the conversation history to provide contextually appropriate responses.",
		}
	}
}
