package mcpserver

// HeaderFormat describes the Org header written at the top of every
// converted note and the link forms produced from wiki-links.
const HeaderFormat = `# mdorg Output Format

Every converted note starts with a metadata header followed by one blank line.

## Drawer convention (default)

` + "```" + `org
:PROPERTIES:
:ID: 0f6c2b8e-...
:ROAM_ALIASES: "Alt name" "Other"
:END:
#+title: Note
#+filetags: :tag1:tag2:
` + "```" + `

## Directive convention

` + "```" + `org
#+title: Note
#+filetags: :tag1:tag2:
#+roam_aliases: "Alt name" "Other"
#+id: 0f6c2b8e-...
` + "```" + `

Tags come from a ` + "`tags:`" + ` block of ` + "`- word`" + ` items. With the bracketed tag
style they render as ` + "`:tag1: :tag2:`" + `. Aliases come from the ` + "`aliases`" + ` list of
the YAML front matter. Empty fields keep their line with no value.

## Links

| Source                      | Output (id mode, target known) | Output (plain mode)         |
|-----------------------------|--------------------------------|-----------------------------|
| ` + "`[[Note]]`" + `                  | ` + "`[[id:U][Note]]`" + `                 | ` + "`[[Note]]`" + `                  |
| ` + "`[[Note#Part]]`" + `             | ` + "`[[id:U::Part][Note]]`" + `           | ` + "`[[Note::Part]]`" + `            |
| ` + "`[[Note|Alias]]`" + `            | ` + "`[[id:U][Alias]]`" + `                | ` + "`[[Note][Alias]]`" + `           |
| ` + "`![alt](img.png)`" + `           | ` + "`[[file:img.png][alt]]`" + `          | same                        |
| ` + "`![[img.png]]`" + `              | ` + "`[[file:img.png]]`" + `               | same                        |

In id mode a link whose target has no identifier yet is left unchanged.
The id-or-plain mode falls back to the plain form instead.
`
