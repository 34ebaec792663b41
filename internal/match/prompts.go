package match

import (
	_ "embed"
)

//go:embed extract_prompt.md
var extractPromptTemplate string

//go:embed domain_prompt.md
var domainPromptTemplate string

//go:embed evaluate_prompt.md
var evaluatePromptTemplate string

//go:embed domain_reference.md
var domainReference string
