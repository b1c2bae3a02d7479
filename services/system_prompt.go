package services

// FallbackPhrase is the exact sentence the model is instructed to use when
// the retrieved context cannot answer the question. The composer suppresses
// citations whenever the raw output contains it, so a non-answer never looks
// evidence-backed.
const FallbackPhrase = "I don't have enough information in the provided context to answer that."

// answerPromptTemplate is the single grounded prompt sent per question. The
// rules are fixed: answer only from the context block, finish every sentence,
// and fall back to the designated phrase when the context is insufficient.
const answerPromptTemplate = `You are an expert assistant for supply chain management and logistics.
Answer the question using ONLY the information in the context below.
Never leave a sentence incomplete.
If the context does not contain the information needed to answer, reply exactly with:
"` + FallbackPhrase + `"

Context:
{{.context}}

Question: {{.question}}

Answer:`
