package answer

import (
	"fmt"
	"strings"
)

// systemPromptTemplate の %s には "Context N: ..." を空行区切りで連結したものが入る
const systemPromptTemplate = `You are a helpful AI assistant with access to the following context information. 
Use this context to provide accurate and helpful responses. If the context doesn't contain enough information 
to answer a question, say so clearly.

%s

Instructions:
1. Base your answers on the provided context
2. Be concise but informative
3. If you're unsure about something, acknowledge the limitation
4. Cite specific parts of the context when relevant
5. Maintain a helpful and professional tone

Please provide your response based on the context above.`

// SystemPrompt はコンテキストを番号付きで埋め込んだシステムプロンプトを返す
func SystemPrompt(contexts []string) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("Context %d: %s", i+1, c)
	}
	return fmt.Sprintf(systemPromptTemplate, strings.Join(blocks, "\n\n"))
}

// BuildMessages はシステムプロンプト、会話履歴、今回の質問の順にメッセージを組み立てる。
// 履歴の assistant 発言は system ロールとして再投入し、user / assistant 以外のロールは無視する。
func BuildMessages(query string, contexts []string, history []Turn) []Message {
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt(contexts)})

	for _, turn := range history {
		switch turn.Role {
		case RoleUser:
			messages = append(messages, Message{Role: RoleUser, Content: turn.Content})
		case RoleAssistant:
			messages = append(messages, Message{Role: RoleSystem, Content: turn.Content})
		}
	}

	return append(messages, Message{Role: RoleUser, Content: query})
}
