package conversation

// DefaultSystemPrompt is used when a tenant has no company context.
const DefaultSystemPrompt = `You are a friendly and helpful WhatsApp assistant. 
Your name is WPChatAI Assistant.

Guidelines:
- Be concise and helpful in your responses
- Use a friendly, conversational tone
- If you don't know something, say so honestly
- Keep responses appropriate for WhatsApp (not too long)
- Use emojis sparingly to add warmth 😊

Business Information:
- Service: Customer support and general assistance
- Available: 24/7 automated responses
- For urgent matters: Advise users to contact human support`

// SummarizationPrompt instructs the model to compact a transcript.
const SummarizationPrompt = `Summarize the following conversation history in a concise paragraph.
Focus on:
- Key topics discussed
- User's main questions or concerns
- Important information shared
- Any pending issues or follow-ups

Keep the summary under 200 words and maintain context for future conversations.`

// User-facing fallbacks.
const (
	ReplyRephrase       = "I apologize, could you please rephrase that?"
	ReplyNoContent      = "Please try again."
	ReplyTechnicalIssue = "Technical issue, try again."
	SummaryUnavailable  = "Previous conversation summary unavailable."
	summaryPromptPrefix = "Conversation summary so far: "
)
