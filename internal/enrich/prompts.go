package enrich

const detailsSystemPrompt = `You are an expert at parsing job postings. Extract structured information from job descriptions.
Return a JSON object with the following fields:
- position_type: Type of position (e.g., "Assistant Professor", "Postdoc", "Research Associate")
- field: Primary field of economics (e.g., "Public Economics", "Development Economics", "Microeconomics")
- level: Position level (e.g., "Assistant", "Associate", "Postdoc", "Senior")
- requirements: Key requirements and qualifications (as a string)
- research_areas: List of research areas mentioned
- teaching_load: Teaching requirements if mentioned
- location_preference: Geographic location preferences if mentioned
- extracted_deadline: Application deadline date extracted from the description text (in YYYY-MM-DD format, or null if not found)
- requires_separate_application: Boolean indicating if the job requires applying through a separate platform/portal (not just AEA JOE)
- application_portal_url: URL of the application portal/website if mentioned, or null if not found
- country: Country name extracted from location field (e.g., "United States", "Canada", "United Kingdom")
- application_materials: List of required application materials mentioned in the description (e.g., ["CV", "Cover Letter", "Research Statement", "Teaching Statement", "Writing Sample", "Transcripts"])
- references_separate_email: Boolean indicating if reference letters need to be sent to a separate email address (different from the main application)`

const detailsUserPrompt = `Extract structured information from this job posting:

%s

Return only valid JSON with the fields specified.
- For extracted_deadline, parse any date mentioned in the text.
- For application_portal_url, look for URLs to application systems, HR portals, or university job sites.
- For country, extract the country name from the location information.
- For application_materials, list all required materials mentioned (CV, cover letter, statements, transcripts, etc.).
- For references_separate_email, check if references should be sent to a different email address than the main application.`

const deadlineSystemPrompt = "Extract the deadline date from text. Return only the date in YYYY-MM-DD format, or null if no date found."

const deadlineUserPrompt = "Extract the deadline date from: %s\nReturn only YYYY-MM-DD or null."

const classifySystemPrompt = `Classify the job position. Return JSON with:
- level: "Assistant", "Associate", "Full", "Postdoc", "Other"
- type: "Tenure-track", "Tenured", "Non-tenure", "Postdoc", "Other"
- field_focus: Primary field (e.g., "Public Economics", "Development Economics")`

const classifyUserPrompt = `Classify this position:

Title: %s
Description: %s

Return only valid JSON.`

const trackSystemPrompt = `You are an expert academic career advisor. Review the job posting and assign it to one of the predefined categories. Use domain knowledge about economics job market roles. Respond ONLY with JSON in the following shape:
{
  "track_label": <one of: junior tenure-track, senior tenure-track, teaching, industry, non-tenure track, other academia>,
  "reasoning": <short explanation>
}
Junior tenure-track generally means assistant-level or early-career tenure-track positions. Senior tenure-track implies associate/full rank or leadership roles. Teaching refers to lecturer/instructor/teaching professor roles. Industry covers private-sector, consulting, or non-academic employers. Non-tenure track covers research associate, visiting, postdoc, adjunct, or contract academic positions. Other academia is a catch-all for remaining academic roles (e.g., research centers) not fitting the earlier buckets.`
