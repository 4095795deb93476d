package mcpserver

// LinkSyntaxURI is the resource URI of LinkSyntax.
const LinkSyntaxURI = "zettelnav://link-syntax"

// LinkSyntax describes the note and link grammar that LLM consumers should
// follow when writing into the corpus or asking for a jump.
const LinkSyntax = `# Zettelnav Link Syntax

All notes live in one Markdown corpus. A note starts at a level-one heading
and runs until the next one.

## Note headers

` + "```" + `markdown
# <id> - <title>
` + "```" + `

1. The id is everything before the first ` + "`-`" + `, trimmed. It must not be empty.
2. The title is everything after that ` + "`-`" + `, trimmed. It may contain more dashes.
3. A level-one heading without a ` + "`-`" + ` is rejected and the whole corpus fails to index.
4. Ids should be unique. A repeated id replaces the earlier note.
5. Deeper headings (` + "`##`" + ` and below) are ordinary text.

## Link addresses

Links are ordinary Markdown links whose destination is an address:

` + "```" + `
[label](path@note#text)
` + "```" + `

Every part is optional, but the address must not be empty:

| Address              | Meaning                                      |
|----------------------|----------------------------------------------|
| ` + "`@asdf`" + `              | jump to the declaration of note asdf         |
| ` + "`notes/other.md`" + `     | open a file                                  |
| ` + "`notes/other.md#word`" + ` | open a file and search for word             |
| ` + "`x.md@asdf#word`" + `     | note id wins: jump to note asdf              |

Rules:

1. At most one ` + "`@`" + ` and at most one ` + "`#`" + `.
2. When both appear, ` + "`@`" + ` comes first.
3. An empty part is present but empty: ` + "`@`" + ` names the note with an empty id.
4. Links before the first note header are ignored.

## Example

` + "```" + `markdown
# asdf - This is a sample note

Some text

# ghjk - Second note

This [links](@asdf) to first one
` + "```" + `

A forward jump with the cursor on line 7 lands on line 1.
`
